package handler

import (
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/matching"
)

// AnimalResponse is the selected animal.
type AnimalResponse struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	SimilarityScore int    `json:"similarityScore"`
}

// MatchResponse is the JSON payload for a served match.
type MatchResponse struct {
	Animal         AnimalResponse `json:"animal"`
	OriginalName   string         `json:"originalName"`
	TotalAnimals   int            `json:"totalAnimals"`
	ClosestMatches int            `json:"closestMatches"`
}

// ErrorResponse is the generic failure payload. It never carries the cause.
type ErrorResponse struct {
	Error string `json:"error"`
}

const fetchFailedMessage = "Failed to fetch animal"

// FromResult converts a match into its response payload.
func FromResult(result matching.MatchResult, total int) MatchResponse {
	return MatchResponse{
		Animal: AnimalResponse{
			Name:            result.Selected.Name,
			Description:     result.Selected.Description,
			SimilarityScore: result.MinDistance,
		},
		OriginalName:   result.NormalizedName,
		TotalAnimals:   total,
		ClosestMatches: result.TieCount,
	}
}
