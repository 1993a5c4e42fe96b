// Package cli provides output helpers for the resep command line client.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/resep/internal/features"
	"github.com/hyperjump/resep/internal/models"
	"github.com/hyperjump/resep/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the server's JSON response, indented.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

// WriteRecommendations writes recommendations to w in the given format.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	if len(response.Recommendations) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return nil
	}
	fmt.Fprintf(w, "\n%d recommendations\n\n", len(response.Recommendations))
	for i, r := range response.Recommendations {
		writeOneRecipe(w, i+1, r)
	}
	return nil
}

func writeOneRecipe(w io.Writer, rank int, r *models.Recipe) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%d. %s\n", rank, r.DishName)
	var meta []string
	if r.Style != "" {
		meta = append(meta, r.Style)
	}
	if r.Category != "" {
		meta = append(meta, r.Category)
	}
	meta = append(meta, fmt.Sprintf("%d favourites", r.NumberFavourites))
	fmt.Fprintf(w, "   %s\n", strings.Join(meta, " | "))
	if names := features.Names(r.Ingredients); len(names) > 0 {
		fmt.Fprintf(w, "   Ingredients: %s\n", utils.Truncate(strings.Join(names, ", "), 200))
	}
	if r.Description != "" {
		fmt.Fprintf(w, "\n   %s\n", utils.Truncate(r.Description, 200))
	}
	fmt.Fprintln(w)
}

// WriteMessage writes a status/message envelope, e.g. the result of a retrain.
func WriteMessage(w io.Writer, response *models.MessageResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	_, err := fmt.Fprintln(w, response.Message)
	return err
}
