package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fundamental/analyst-app/config"
	"fundamental/analyst-app/core"
	"fundamental/analyst-app/server"
	"fundamental/analyst-app/services/report_service"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "analyze":
		runAnalyze(os.Args[2:])
	case "version":
		fmt.Printf("analyst %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	addr := fs.String("addr", "", "listen address (overrides server.addr)")
	_ = fs.Parse(args)

	cfg := mustLoadConfig(*configPath)
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := server.Run(ctx, cfg.Server.Addr, server.NewRouter(a.reports)); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	company := fs.String("company", "", "company to analyze (prompted when empty)")
	year := fs.String("year", "", "analysis year (defaults to the current year)")
	out := fs.String("out", "", "also write the report to this file")
	_ = fs.Parse(args)

	cfg := mustLoadConfig(*configPath)

	name := strings.TrimSpace(*company)
	if name == "" {
		var err error
		name, err = readCompany(os.Stdin, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read company name: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	fmt.Printf("Analyzing %s... This may take a few minutes.\n", name)
	report, err := a.reports.Generate(ctx, report_service.ReportRequest{CompanyName: name, CurrentYear: *year})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error occurred: %v\n", err)
		fmt.Fprintln(os.Stderr, "Troubleshooting Tips:\n- Check if the company name is spelled correctly\n- Ensure you have internet connection\n- Try again in a few minutes")
		os.Exit(1)
	}

	fmt.Println(report.Report)
	core.Logger().Info("report saved", slog.String("run_id", report.RunID), slog.String("dir", cfg.Pipeline.OutputDir))

	if *out != "" {
		if err := os.WriteFile(*out, []byte(report.Report), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *out)
	}
}

// readCompany prompts on w until a non-blank company name is read from r.
func readCompany(r io.Reader, w io.Writer) (string, error) {
	reader := bufio.NewReader(r)
	for {
		fmt.Fprint(w, "Enter company name (e.g. Tesla): ")
		line, err := reader.ReadString('\n')
		if name := strings.TrimSpace(line); name != "" {
			return name, nil
		}
		if err != nil {
			return "", err
		}
		fmt.Fprintln(w, "Company name is required.")
	}
}

func mustLoadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	core.SetLogger(core.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
	return cfg
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `analyst %s: fundamental analysis of public companies

Usage: analyst <command> [options]

Commands:
  serve   [-config FILE] [-addr ADDR]                       Start the HTTP API and web UI
  analyze [-config FILE] [-company NAME] [-year YYYY] [-out FILE]
                                                            Run one analysis in the terminal
  version                                                   Print version
  help                                                      Show this help

Environment:
  GEMINI_API_KEY, OPENAI_API_KEY   LLM credentials
  SERPER_API_KEY                   Serper web search (DuckDuckGo is used without it)
  ANALYST_ADDR                     Listen address override
`, version)
}
