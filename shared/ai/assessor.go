package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"credibility-stack/internal/models"
	"credibility-stack/shared/config"

	"google.golang.org/genai"
)

// Verdicts the model is asked to choose from.
const (
	VerdictCredible   = "credible"
	VerdictMixed      = "mixed"
	VerdictMisleading = "misleading"
)

var validVerdicts = map[string]bool{
	VerdictCredible:   true,
	VerdictMixed:      true,
	VerdictMisleading: true,
}

// Assessor asks Gemini for an overall credibility verdict on a finished
// analysis run.
type Assessor struct {
	client *genai.Client
	model  string
}

func NewAssessor(ctx context.Context, cfg *config.AIConfig) (*Assessor, error) {
	return newAssessor(ctx, cfg, nil)
}

func newAssessor(ctx context.Context, cfg *config.AIConfig, httpOptions *genai.HTTPOptions) (*Assessor, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if httpOptions != nil {
		clientConfig.HTTPOptions = *httpOptions
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Assessor{
		client: client,
		model:  cfg.Model,
	}, nil
}

func (a *Assessor) Assess(ctx context.Context, report *models.Report) (*models.Assessment, error) {
	if report == nil || report.Conclusion == nil {
		return nil, fmt.Errorf("report with a conclusion is required")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(buildAssessmentPrompt(report)),
		}, genai.RoleUser),
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to assess %q: %w", report.Keyword, err)
	}

	responseText := result.Text()
	if responseText == "" {
		return nil, fmt.Errorf("no assessment response received for %q", report.Keyword)
	}

	assessment, err := parseAssessmentResponse(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse assessment response for %q: %w", report.Keyword, err)
	}

	return assessment, nil
}

func buildAssessmentPrompt(report *models.Report) string {
	c := report.Conclusion

	var videos strings.Builder
	for i, v := range report.Videos {
		if i == 10 {
			fmt.Fprintf(&videos, "- ... and %d more\n", len(report.Videos)-i)
			break
		}
		fmt.Fprintf(&videos, "- %q by %s (%d views, %d likes): %s\n",
			v.Title, v.ChannelTitle, v.ViewCount, v.LikeCount, truncateString(v.Description, 200))
	}

	comparison := c.ComparisonText()
	if comparison == "" {
		comparison = "(no source comparison available)\n"
	}

	themes := "(none)"
	if len(c.Themes) > 0 {
		themes = strings.Join(c.Themes, ", ")
	}

	return fmt.Sprintf(`You are an assistant that judges whether online video coverage of a topic is credible.

TOPIC: %s

VIDEOS:
%s
AUDIENCE SENTIMENT: %s (%d positive, %d neutral, %d negative comments)
COMMON THEMES: %s
AVERAGE VIEWS: %.1f
AVERAGE LIKES: %.1f

REFERENCE SOURCE CHECKS:
%s
INSTRUCTIONS:
1. Weigh the reference source checks most heavily; ignore lines that report retrieval or parse errors
2. Treat audience sentiment and engagement as weak signals only
3. Do not invent facts about the videos beyond what is listed above

Please provide your assessment in the following JSON format:
{
  "verdict": "credible" | "mixed" | "misleading",
  "confidence": number (1-10, where 10 is most confident),
  "summary": "One or two sentences a reader can act on",
  "reasoning": "Which signals drove the verdict"
}`,
		report.Keyword,
		videos.String(),
		c.SentimentLabel(),
		report.Tally.Positive, report.Tally.Neutral, report.Tally.Negative,
		themes,
		c.AvgViews,
		c.AvgLikes,
		comparison,
	)
}

func parseAssessmentResponse(response string) (*models.Assessment, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("no JSON found in response: %s", response)
	}

	jsonStr := response[startIdx : endIdx+1]

	var result struct {
		Verdict    string `json:"verdict"`
		Confidence int    `json:"confidence"`
		Summary    string `json:"summary"`
		Reasoning  string `json:"reasoning"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		sanitizedJSON := sanitizeJSON(jsonStr)
		if sanitizedErr := json.Unmarshal([]byte(sanitizedJSON), &result); sanitizedErr != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON '%s': %w (sanitized version also failed: %v)", jsonStr, err, sanitizedErr)
		}
		log.Println("Warning: Had to sanitize malformed JSON in assessment response")
	}

	if result.Summary == "" {
		return nil, fmt.Errorf("assessment summary is required but was empty")
	}

	verdict := strings.ToLower(strings.TrimSpace(result.Verdict))
	if !validVerdicts[verdict] {
		log.Printf("Warning: Unknown verdict %q, treating as mixed", result.Verdict)
		verdict = VerdictMixed
	}

	if result.Confidence < 1 {
		result.Confidence = 1
	} else if result.Confidence > 10 {
		result.Confidence = 10
	}

	return &models.Assessment{
		Verdict:    verdict,
		Confidence: result.Confidence,
		Summary:    result.Summary,
		Reasoning:  result.Reasoning,
	}, nil
}

// sanitizeJSON escapes stray double quotes inside one-line string values,
// which is the most common way model output breaks JSON.
func sanitizeJSON(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	var sanitizedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx != -1 && strings.Contains(line, "\"") {
			beforeColon := line[:colonIdx+1]
			afterColon := strings.TrimSpace(line[colonIdx+1:])

			if strings.HasPrefix(afterColon, "\"") {
				lastQuoteIdx := strings.LastIndex(afterColon, "\"")
				if lastQuoteIdx > 0 {
					content := afterColon[1:lastQuoteIdx]
					content = strings.ReplaceAll(content, `\"`, `"`)
					content = strings.ReplaceAll(content, `"`, `\"`)
					line = beforeColon + " \"" + content + "\"" + afterColon[lastQuoteIdx+1:]
				}
			}
		}

		sanitizedLines = append(sanitizedLines, line)
	}

	return strings.Join(sanitizedLines, "\n")
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
