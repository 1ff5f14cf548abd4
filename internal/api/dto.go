package api

import (
	"github.com/starford/perthro/internal/classify"
	"github.com/starford/perthro/internal/investigation"
)

// SearchRequest is the request body of POST /api/search (aliased from the domain layer).
type SearchRequest = investigation.SearchRequest

// IndicatorsResponse is the response of GET /api/indicators.
type IndicatorsResponse = investigation.IndicatorsResult

// SearchResponse is the response of POST /api/search.
type SearchResponse = investigation.SearchResult

// ArtifactsResponse is the response of GET /api/artifacts.
type ArtifactsResponse = investigation.ArtifactsResult

// ClassifyRequest is the request body of POST /api/classify.
type ClassifyRequest struct {
	Text string `json:"text" example:"dropper.ps1 beaconed to c2.example.net" validate:"required"`
}

// ClassifyResponse groups classified tokens by category.
type ClassifyResponse = classify.Result
