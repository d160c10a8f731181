// Command gmapreviews-mcp exposes the review scraper's HTTP API as an MCP
// tool over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// reviewsRequest mirrors the gmapreviews API request model.
type reviewsRequest struct {
	PlaceURL   string `json:"place_url"`
	MaxReviews int    `json:"max_reviews,omitempty"`
	MaxAge     int    `json:"max_age,omitempty"`
}

// reviewsResponse mirrors the fields of the API response this tool reports.
type reviewsResponse struct {
	Success    bool            `json:"success"`
	PlaceURL   string          `json:"place_url"`
	Reviews    json.RawMessage `json:"reviews"`
	Total      int             `json:"total"`
	OutputPath string          `json:"output_path"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("GMAPREVIEWS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("GMAPREVIEWS_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GMAPREVIEWS_API_KEY is required")
		os.Exit(1)
	}

	s := newServer(strings.TrimRight(apiURL, "/"), apiKey)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"gmapreviews",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeReviewsTool := mcp.NewTool("scrape_reviews",
		mcp.WithDescription("Collect the public reviews of a Google Maps place. Opens the place in a browser, scrolls the reviews panel and returns the de-duplicated reviews as JSON (author, rating, date, text, author image). Only one scrape runs at a time."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The Google Maps place URL"),
		),
		mcp.WithNumber("max_reviews",
			mcp.Description("Maximum number of reviews to collect (default: the server's MAX_REVIEWS)"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Accept a cached result younger than this many milliseconds (default: always scrape)"),
		),
	)
	s.AddTool(scrapeReviewsTool, handleScrapeReviews(apiURL, apiKey))
	return s
}

func handleScrapeReviews(apiURL, apiKey string) server.ToolHandlerFunc {
	// sessions scroll until the list ends, which can take minutes
	client := &http.Client{Timeout: 15 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := reviewsRequest{
			PlaceURL:   url,
			MaxReviews: request.GetInt("max_reviews", 0),
			MaxAge:     request.GetInt("max_age", 0),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/reviews", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reviews request failed: %v", err)), nil
		}

		var resp reviewsResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "scrape failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			if resp.Total > 0 {
				errMsg += fmt.Sprintf(" (%d reviews were saved to %s before the failure)", resp.Total, resp.OutputPath)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, resp.Reviews, "", "  "); err != nil {
			pretty.Write(resp.Reviews)
		}

		result := fmt.Sprintf("Place: %s\nReviews: %d\nSaved to: %s\n\n%s",
			resp.PlaceURL, resp.Total, resp.OutputPath, pretty.String())
		return mcp.NewToolResultText(result), nil
	}
}

// apiPost sends a POST request to the gmapreviews API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
