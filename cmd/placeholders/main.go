package main

// Inspect or fill a local PDF template:
//   go run ./cmd/placeholders --file contract.pdf
//   go run ./cmd/placeholders --file contract.pdf --set full_name="Jane Doe" --out filled.pdf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"templatefill-backend/internal/extract"
	"templatefill-backend/internal/llm"
	openai "templatefill-backend/internal/llm/openai"
	"templatefill-backend/internal/render"
	"templatefill-backend/internal/shared/config"
	"templatefill-backend/internal/templates"
)

type options struct {
	file   string
	out    string
	brief  string
	values map[string]string
}

type report struct {
	Placeholders []string          `json:"placeholders"`
	Labels       []string          `json:"labels"`
	Fillable     bool              `json:"fillable"`
	Values       map[string]string `json:"values,omitempty"`
	Output       string            `json:"output,omitempty"`
	Fallback     bool              `json:"fallback,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, suggesterFromEnv); err != nil {
		fmt.Fprintf(os.Stderr, "placeholders: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("placeholders", pflag.ContinueOnError)
	fs.StringVarP(&opts.file, "file", "f", "", "PDF template to inspect")
	fs.StringVarP(&opts.out, "out", "o", "", "write a rendered document to this path")
	fs.StringVar(&opts.brief, "brief", "", "ask the suggestion engine to fill values from this text")
	fs.StringToStringVar(&opts.values, "set", nil, "field values as name=value")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if strings.TrimSpace(opts.file) == "" {
		return options{}, errors.New("--file is required")
	}
	return opts, nil
}

func run(args []string, stdout io.Writer, suggester func() llm.Suggester) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return err
	}

	ctx := context.Background()
	names, err := extract.New().Extract(ctx, data)
	if err != nil {
		return err
	}

	rep := report{Placeholders: names, Labels: make([]string, len(names)), Fillable: len(names) > 0}
	if rep.Placeholders == nil {
		rep.Placeholders = []string{}
	}
	for i, n := range names {
		rep.Labels[i] = extract.Label(n)
	}

	var suggestion *llm.SuggestionResult
	values := map[string]string{}
	if opts.brief != "" && rep.Fillable {
		name := strings.TrimSuffix(filepath.Base(opts.file), filepath.Ext(opts.file))
		res, err := suggester().Suggest(ctx, llm.SuggestInput{
			Fields:   names,
			Context:  llm.BuildContext(name, names),
			UserData: map[string]string{"userContext": opts.brief},
		})
		if err != nil {
			return err
		}
		suggestion = &res
		for k, v := range res.ValuesByField {
			values[k] = v
		}
	}
	for k, v := range opts.values {
		values[extract.NormalizeName(k)] = v
	}
	if len(values) > 0 {
		rep.Values = values
	}

	if opts.out != "" {
		tpl := templates.Template{
			ID:           "local",
			Name:         strings.TrimSuffix(filepath.Base(opts.file), filepath.Ext(opts.file)),
			Placeholders: names,
			CreatedAt:    time.Now(),
		}
		art := render.New().Render(ctx, tpl, values, suggestion)
		if err := os.WriteFile(opts.out, art.Bytes, 0o644); err != nil {
			return err
		}
		rep.Output = opts.out
		rep.Fallback = art.Fallback
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func suggesterFromEnv() llm.Suggester {
	cfg := config.Load()
	client, err := openai.NewSuggestClient(openai.Config{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		return llm.Unconfigured{}
	}
	return client
}
