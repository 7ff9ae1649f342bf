package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grabsome/grabsome/internal/fetch"
	"github.com/grabsome/grabsome/internal/logger"
	"github.com/grabsome/grabsome/internal/output"
	"github.com/grabsome/grabsome/pkg/grabsome"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Fetch a URL and print extracted content",
	Long: `Fetch a web page and print its normalized content.

The engine decides between a plain HTTP fetch and full browser rendering
based on --mode. In auto mode it fetches statically first and escalates to
the browser when the page looks like a JavaScript shell or the extracted
text falls below --min-content.

Examples:
  grabsome fetch https://example.com/article --format text
  grabsome fetch https://example.com/spa --mode dynamic --wait-selector "#app"
  grabsome fetch https://example.com --output page --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	flags := fetchCmd.Flags()

	// Retrieval settings
	flags.String("mode", "auto", "fetch mode: auto, static, dynamic")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.Int("max-retries", 3, "retries for transient fetch failures")
	flags.Int("min-content", fetch.DefaultMinContentLength, "minimum text length before auto mode escalates to rendering")
	flags.String("wait-selector", "", "CSS selector the renderer waits for")
	flags.Duration("wait-idle", fetch.DefaultWaitIdle, "settle period after the page is ready")
	flags.StringSlice("header", nil, "request header as 'Key: Value' (repeatable)")
	flags.String("user-agent", "", "pin the user agent instead of rotating")
	flags.String("max-body-size", "10MB", "max response body size (e.g. 512KB, 10MB)")
	flags.Bool("no-browser", false, "never start a browser (static only)")

	// Resource settings
	flags.Int("http-pool", 8, "max pooled HTTP clients")
	flags.Int("browser-pool", 2, "max concurrent browser contexts")
	flags.Duration("acquire-timeout", 15*time.Second, "max wait for a pooled resource")

	// Output settings
	flags.String("format", "markdown", "output format: json, yaml, text, markdown, html")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.Bool("readability", false, "strip boilerplate with a readability pass")
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	url := args[0]

	mode, err := fetch.ParseMode(flags.Lookup("mode").Value.String())
	if err != nil {
		logError("%v", err)
		return err
	}

	format, err := output.ParseFormat(flags.Lookup("format").Value.String())
	if err != nil {
		logError("%v", err)
		return err
	}

	maxBody, err := humanize.ParseBytes(flags.Lookup("max-body-size").Value.String())
	if err != nil {
		logError("invalid --max-body-size: %v", err)
		return err
	}

	headerFlags, _ := flags.GetStringSlice("header")
	headers, err := parseHeaders(headerFlags)
	if err != nil {
		logError("%v", err)
		return err
	}

	timeout, _ := flags.GetDuration("timeout")
	waitIdle, _ := flags.GetDuration("wait-idle")
	acquireTimeout, _ := flags.GetDuration("acquire-timeout")
	maxRetries, _ := flags.GetInt("max-retries")
	minContent, _ := flags.GetInt("min-content")
	httpPool, _ := flags.GetInt("http-pool")
	browserPool, _ := flags.GetInt("browser-pool")
	waitSelector, _ := flags.GetString("wait-selector")
	userAgent, _ := flags.GetString("user-agent")
	outPath, _ := flags.GetString("output")
	readability, _ := flags.GetBool("readability")
	noBrowser, _ := flags.GetBool("no-browser")

	opts := []grabsome.Option{
		grabsome.WithMode(mode),
		grabsome.WithTimeout(timeout),
		grabsome.WithMaxRetries(maxRetries),
		grabsome.WithMinContentLength(minContent),
		grabsome.WithWaitSelector(waitSelector),
		grabsome.WithWaitIdle(waitIdle),
		grabsome.WithHTTPPoolSize(httpPool),
		grabsome.WithBrowserPoolSize(browserPool),
		grabsome.WithAcquireTimeout(acquireTimeout),
		grabsome.WithMaxBodySize(int64(maxBody)),
		grabsome.WithReadability(readability),
	}
	if userAgent != "" {
		opts = append(opts, grabsome.WithUserAgent(userAgent))
	}
	if len(headers) > 0 {
		opts = append(opts, grabsome.WithHeaders(headers))
	}
	if noBrowser {
		opts = append(opts, grabsome.WithoutRendering())
	}
	if chromePath := viper.GetString("chrome_path"); chromePath != "" {
		opts = append(opts, grabsome.WithChromePath(chromePath))
	}

	client, err := grabsome.New(opts...)
	if err != nil {
		logError("%v", err)
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := client.Fetch(ctx, url)
	if err != nil {
		var fe *grabsome.FetchError
		if errors.As(err, &fe) {
			logError("%s (%s after %d attempts)", fe.Err, fe.Kind, fe.Attempts)
		} else {
			logError("%v", err)
		}
		return err
	}

	if outPath != "" {
		path, err := output.WriteFile(outPath, doc, format)
		if err != nil {
			logError("%v", err)
			return err
		}
		logger.Info("wrote output", "path", path, "format", format)
		return nil
	}

	return output.Render(os.Stdout, doc, format)
}

// parseHeaders converts "Key: Value" flags into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q (use 'Key: Value')", h)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}
