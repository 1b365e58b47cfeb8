package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/haowjy/meridian-stream"
	"github.com/haowjy/meridian-stream/config"
)

// outputMode selects how decoded results are printed.
type outputMode struct {
	json      bool
	aggregate bool
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	provider   string
	shape      string
	metrics    bool
	output     outputMode
}

func (c *commonFlags) register(flagSet *pflag.FlagSet, withProvider bool) {
	flagSet.StringVar(&c.configPath, "config", "", "path to meridian-stream.yaml")
	if withProvider {
		flagSet.StringVarP(&c.provider, "provider", "p", "", "provider id (anthropic, openai, cohere, openrouter)")
	}
	flagSet.StringVarP(&c.shape, "shape", "s", "chat", "result shape (chat, completion, embedding)")
	flagSet.BoolVar(&c.metrics, "metrics", false, "print stream and request metrics to stderr when done")
	flagSet.BoolVar(&c.output.json, "json", false, "print each fragment as a JSON line")
	flagSet.BoolVarP(&c.output.aggregate, "aggregate", "a", false, "print only the aggregated result as JSON")
	flagSet.BoolP("help", "h", false, "show help")
}

// session is a loaded config plus the runtime built from it.
type session struct {
	runtime  *config.Runtime
	gatherer prometheus.Gatherer
}

func (c *commonFlags) open() (*session, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.metrics {
		cfg.Observability.Metrics.Enabled = true
	}

	reg := prometheus.NewRegistry()
	rt, err := cfg.Build(reg)
	if err != nil {
		return nil, err
	}
	return &session{runtime: rt, gatherer: reg}, nil
}

func (s *session) adapter(provider string) (llmprovider.Adapter, error) {
	if provider == "" {
		return nil, fmt.Errorf("--provider is required")
	}
	return s.runtime.Registry.Get(llmprovider.ProviderID(provider))
}

func (s *session) close(printMetrics bool) {
	if printMetrics && s.runtime.Metrics != nil {
		if err := writeMetrics(os.Stderr, s.gatherer); err != nil {
			fmt.Fprintf(os.Stderr, "error: gathering metrics: %v\n", err)
		}
	}
}

// parseFlags parses args and returns pflag.ErrHelp after printing command
// help when --help or -h is given.
func parseFlags(flagSet *pflag.FlagSet, args []string, usage string) error {
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printCommandHelp(flagSet, usage)
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printCommandHelp(flagSet, usage)
		return pflag.ErrHelp
	}
	return nil
}

func printCommandHelp(flagSet *pflag.FlagSet, usage string) {
	fmt.Fprintf(os.Stderr, "Usage:\n  %s\n\nFlags:\n", usage)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

func runReplay(args []string) error {
	var flags commonFlags
	flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.register(flagSet, true)
	if err := parseFlags(flagSet, args, "llmstream replay --provider <id> [flags] <capture-file>"); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("replay takes exactly one capture file")
	}

	shape, err := llmprovider.ParseResultShape(flags.shape)
	if err != nil {
		return err
	}
	sess, err := flags.open()
	if err != nil {
		return err
	}
	defer sess.close(flags.metrics)

	adapter, err := sess.adapter(flags.provider)
	if err != nil {
		return err
	}

	file, err := os.Open(flagSet.Arg(0))
	if err != nil {
		return err
	}

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       file,
	}
	return printStream(os.Stdout, adapter.DecodeStream(resp, shape), flags.output)
}

func runDecode(args []string) error {
	var flags commonFlags
	flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flags.register(flagSet, true)
	if err := parseFlags(flagSet, args, "llmstream decode --provider <id> [flags] <body-file>"); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("decode takes exactly one body file")
	}

	shape, err := llmprovider.ParseResultShape(flags.shape)
	if err != nil {
		return err
	}
	sess, err := flags.open()
	if err != nil {
		return err
	}
	defer sess.close(flags.metrics)

	adapter, err := sess.adapter(flags.provider)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		return err
	}
	result, err := adapter.DecodeBody(data, shape)
	if err != nil {
		return err
	}
	adapter.Annotate(result, nil)
	fmt.Fprintln(os.Stdout, result.String())
	return nil
}

func runURL(args []string) error {
	var flags commonFlags
	var endpoint, suffix string
	flagSet := pflag.NewFlagSet("url", pflag.ContinueOnError)
	flags.register(flagSet, true)
	flagSet.StringVarP(&endpoint, "endpoint", "e", "chat", "endpoint kind (chat, completion, embedding, image_generation, files, moderation, models)")
	flagSet.StringVar(&suffix, "suffix", "", "path suffix appended to the endpoint (e.g., /file-abc)")
	if err := parseFlags(flagSet, args, "llmstream url --provider <id> [--endpoint <kind>] [--suffix <path>]"); err != nil {
		return err
	}

	kind, err := llmprovider.ParseEndpointKind(endpoint)
	if err != nil {
		return err
	}
	sess, err := flags.open()
	if err != nil {
		return err
	}

	adapter, err := sess.adapter(flags.provider)
	if err != nil {
		return err
	}
	url, err := adapter.BuildURL(kind, suffix)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, url)
	return nil
}

func runSend(args []string) error {
	var flags commonFlags
	var model, bodyPath, endpoint string
	var noStream bool
	flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
	flags.register(flagSet, true)
	flagSet.StringVarP(&model, "model", "m", "", "model name; selects the provider when --provider is unset")
	flagSet.StringVarP(&bodyPath, "body", "b", "", "request body JSON file (\"-\" for stdin)")
	flagSet.StringVarP(&endpoint, "endpoint", "e", "chat", "endpoint kind")
	flagSet.BoolVar(&noStream, "no-stream", false, "request a complete (non-streaming) response")
	if err := parseFlags(flagSet, args, "llmstream send --body <file> [--model <name>] [flags]"); err != nil {
		return err
	}
	if bodyPath == "" {
		return fmt.Errorf("--body is required")
	}

	shape, err := llmprovider.ParseResultShape(flags.shape)
	if err != nil {
		return err
	}
	kind, err := llmprovider.ParseEndpointKind(endpoint)
	if err != nil {
		return err
	}
	body, err := readBody(bodyPath)
	if err != nil {
		return err
	}
	body, model, err = resolveModel(body, model)
	if err != nil {
		return err
	}

	sess, err := flags.open()
	if err != nil {
		return err
	}
	defer sess.close(flags.metrics)

	var adapter llmprovider.Adapter
	if flags.provider != "" {
		adapter, err = sess.adapter(flags.provider)
	} else {
		adapter, err = sess.runtime.Registry.ForModel(model)
	}
	if err != nil {
		return err
	}

	url, err := adapter.BuildURL(kind, "")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	streaming := !noStream
	req, err := adapter.NewRequest(ctx, url, http.MethodPost, body, streaming)
	if err != nil {
		return err
	}

	sess.runtime.Logger.Debug("sending request",
		"provider", adapter.ID(),
		"url", url,
		"streaming", streaming)

	resp, err := llmprovider.Send(sess.runtime.HTTPClient, adapter.ID(), req)
	if err != nil {
		return err
	}

	if !streaming {
		result, err := llmprovider.ReadResult(adapter, resp, shape)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, result.String())
		return nil
	}
	return printStream(os.Stdout, adapter.DecodeStream(resp, shape), flags.output)
}

func readBody(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// resolveModel reconciles --model with the body's "model" field. The flag
// wins and is written into the body.
func resolveModel(body []byte, model string) ([]byte, string, error) {
	if !gjson.ValidBytes(body) {
		return nil, "", fmt.Errorf("request body is not valid JSON")
	}
	if model == "" {
		model = gjson.GetBytes(body, "model").String()
		if model == "" {
			return nil, "", fmt.Errorf("--model is required when the body has no \"model\" field")
		}
		return body, model, nil
	}
	body, err := sjson.SetBytes(body, "model", model)
	if err != nil {
		return nil, "", err
	}
	return body, model, nil
}

// printStream writes a stream to w in the selected mode. Plain mode prints
// choice 0 text as it arrives and the finish reason on stderr.
func printStream(w io.Writer, stream *llmprovider.Stream, mode outputMode) error {
	if mode.aggregate {
		result, err := stream.Collect()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, result.String())
		return err
	}

	var finish llmprovider.FinishReason
	for result, err := range stream.All() {
		if err != nil {
			return err
		}
		if reason, ok := result.FinishReason(); ok {
			finish = reason
		}
		if mode.json {
			fmt.Fprintln(w, result.String())
			continue
		}
		if len(result.Embeddings) > 0 {
			fmt.Fprintf(w, "%d embeddings\n", len(result.Embeddings))
			continue
		}
		fmt.Fprint(w, result.Text(0))
	}

	if !mode.json {
		fmt.Fprintln(w)
		if finish != "" {
			fmt.Fprintf(os.Stderr, "finish: %s\n", finish)
		}
	}
	return nil
}

// writeMetrics prints counters and histogram counts from gatherer, one
// sample per line.
func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, label.GetName()+"="+label.GetValue())
			}
			name := family.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case metric.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetCounter().GetValue()))
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%.3fs", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)

	if len(lines) == 0 {
		return errors.New("no metrics recorded")
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
