package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkoukk/tiktoken-go"

	"github.com/sandwich-alignment/alignment/internal/board"
	"github.com/sandwich-alignment/alignment/internal/gemini"
	"github.com/sandwich-alignment/alignment/internal/models"
	"github.com/sandwich-alignment/alignment/internal/ollama"
	"github.com/sandwich-alignment/alignment/internal/openai"
	"github.com/sandwich-alignment/alignment/internal/providers"
)

// Note is attached to every generated board
const Note = "AI Generated Board"

const systemPrompt = "You are an expert in generating synthetic data. Return a JSON object with sandwichesOnBoard " +
	"(array of objects with id, x, y where x and y are between -1 and 1), axisLabels (top: 'Good', bottom: 'Evil', " +
	"left: 'Lawful', right: 'Chaotic'), and note ('AI Generated Board'). " +
	"Negative x is lawful, positive x is chaotic, negative y is good, positive y is evil."

var (
	ErrPromptTooLarge = errors.New("prompt exceeds token limit")
	ErrEmptyCatalog   = errors.New("catalog is empty")
	ErrBadResponse    = errors.New("unusable generator response")
)

// Catalog is the item list the generator places
type Catalog interface {
	IDs() []string
	Get(id string) (models.Item, bool)
}

// boardResponse is the JSON shape requested from the model
type boardResponse struct {
	SandwichesOnBoard []placementResponse `json:"sandwichesOnBoard" jsonschema_description:"Every sandwich placed on the alignment chart"`
	AxisLabels        labelsResponse      `json:"axisLabels" jsonschema_description:"Names of the four chart extremes"`
	Note              string              `json:"note" jsonschema_description:"Short note describing the board"`
}

type placementResponse struct {
	ID string  `json:"id" jsonschema_description:"Sandwich id from the provided list"`
	X  float64 `json:"x" jsonschema_description:"Horizontal position from -1 (lawful) to 1 (chaotic)"`
	Y  float64 `json:"y" jsonschema_description:"Vertical position from -1 (good) to 1 (evil)"`
}

type labelsResponse struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
	Right  string `json:"right"`
}

var boardResponseSchema = generateSchema[boardResponse]()

func generateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Options configures a Generator
type Options struct {
	Model       string
	Temperature float64
	// Encoding is a tiktoken encoding name used to size prompts. When empty
	// or unavailable the size is approximated as characters / 4.
	Encoding        string
	MaxPromptTokens int
}

// Generator asks an LLM for a synthetic board
type Generator struct {
	provider providers.Provider
	catalog  Catalog
	opts     Options
	encoding *tiktoken.Tiktoken
}

// New builds a generator over the catalog
func New(provider providers.Provider, catalog Catalog, opts Options) *Generator {
	g := &Generator{
		provider: provider,
		catalog:  catalog,
		opts:     opts,
	}
	if opts.Encoding != "" {
		encoding, err := tiktoken.GetEncoding(opts.Encoding)
		if err != nil {
			slog.Warn("Failed to load tiktoken encoding, approximating prompt size", "encoding", opts.Encoding, "err", err)
		} else {
			g.encoding = encoding
		}
	}
	return g
}

// NewProvider returns the named provider
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "openai":
		return openai.New(), nil
	case "ollama":
		return ollama.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// Prompt returns the user prompt listing the catalog ids
func (g *Generator) Prompt() string {
	return fmt.Sprintf("Generate board data using sandwich IDs from this list: %s", strings.Join(g.catalog.IDs(), ", "))
}

// CountTokens sizes text with the configured encoding
func (g *Generator) CountTokens(text string) int {
	if g.encoding != nil {
		return len(g.encoding.Encode(text, nil, nil))
	}
	return len(text) / 4
}

// Generate requests a board and returns it as an ai-generated submission
func (g *Generator) Generate(ctx context.Context) (models.Submission, error) {
	if len(g.catalog.IDs()) == 0 {
		return models.Submission{}, ErrEmptyCatalog
	}

	prompt := g.Prompt()
	tokens := g.CountTokens(systemPrompt) + g.CountTokens(prompt)
	if g.opts.MaxPromptTokens > 0 && tokens > g.opts.MaxPromptTokens {
		return models.Submission{}, fmt.Errorf("%w: %d > %d", ErrPromptTooLarge, tokens, g.opts.MaxPromptTokens)
	}

	slog.Debug("Requesting generated board", "model", g.opts.Model, "prompt_tokens", tokens)

	start := time.Now()
	raw, err := g.provider.Generate(ctx, providers.Config{
		Model:       g.opts.Model,
		Temperature: g.opts.Temperature,
		System:      systemPrompt,
		Prompt:      prompt,
		Schema:      boardResponseSchema,
		SchemaName:  "board_response",
	})
	if err != nil {
		return models.Submission{}, fmt.Errorf("failed to generate board: %w", err)
	}

	resp, err := parseResponse(raw)
	if err != nil {
		return models.Submission{}, err
	}

	sub := g.toSubmission(resp)
	slog.Info("Generated board", "placements", len(sub.Placements), "duration", time.Since(start))

	return sub, nil
}

// GenerateBoard generates a submission and imports it as a board
func (g *Generator) GenerateBoard(ctx context.Context) (*board.Board, models.Submission, error) {
	sub, err := g.Generate(ctx)
	if err != nil {
		return nil, models.Submission{}, err
	}
	b, err := board.Import(sub)
	if err != nil {
		return nil, models.Submission{}, fmt.Errorf("failed to import generated board: %w", err)
	}
	return b, sub, nil
}

// toSubmission keeps the first placement of each known id and clamps
// coordinates onto the board
func (g *Generator) toSubmission(resp boardResponse) models.Submission {
	sub := models.Submission{
		AxisLabels: models.AxisLabels{
			Top:    resp.AxisLabels.Top,
			Bottom: resp.AxisLabels.Bottom,
			Left:   resp.AxisLabels.Left,
			Right:  resp.AxisLabels.Right,
		}.WithDefaults(),
		Note:        Note,
		Source:      models.SourceAIGenerated,
		SubmittedAt: time.Now().UTC(),
	}

	seen := make(map[string]bool)
	for _, p := range resp.SandwichesOnBoard {
		if _, ok := g.catalog.Get(p.ID); !ok {
			slog.Warn("Dropping generated placement for unknown item", "id", p.ID)
			continue
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		sub.Placements = append(sub.Placements, models.NewSubmittedPlacement(p.ID, board.Clamp(p.X), board.Clamp(p.Y)))
	}
	return sub
}

// parseResponse decodes model output, tolerating markdown code fences and
// a JSON document that was itself encoded as a string
func parseResponse(raw string) (boardResponse, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	if strings.HasPrefix(text, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(text), &inner); err != nil {
			return boardResponse{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		text = stripCodeFence(strings.TrimSpace(inner))
	}

	var resp boardResponse
	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := decoder.Decode(&resp); err != nil {
		return boardResponse{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(resp.SandwichesOnBoard) == 0 {
		return boardResponse{}, fmt.Errorf("%w: no placements", ErrBadResponse)
	}
	return resp, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
