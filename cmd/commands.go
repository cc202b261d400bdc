package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/pkg/graph"
	"github.com/xhad/litkb/pkg/llm"
	"github.com/xhad/litkb/pkg/monitor"
	"github.com/xhad/litkb/pkg/rag"
	"github.com/xhad/litkb/pkg/store"
	"github.com/xhad/litkb/server"
)

func runIngest(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	analyze := fs.Bool("analyze", false, "Run the LLM analyzer on each abstract before indexing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: ingest [-analyze] <articles.json>")
	}

	articles, err := readArticles(fs.Arg(0))
	if err != nil {
		return err
	}
	color.Blue("\nIngesting %d articles from %s\n", len(articles), fs.Arg(0))

	if *analyze {
		analyzer := llm.NewAnalyzer(a.chatEngine)
		bar := getProgressBar(len(articles), "🔬 Analyzing abstracts...")
		for i := range articles {
			if articles[i].Abstract != "" {
				analysis, err := analyzer.Analyze(ctx, articles[i].Abstract)
				if err != nil {
					a.logger.Warn("analysis failed", "title", articles[i].Title, "err", err)
				} else {
					articles[i].Analysis.Merge(analysis)
				}
			}
			bar.Add(1)
		}
		bar.Finish()
		fmt.Println()
	}

	processingBar := getProgressBar(len(articles), "🔄 Chunking articles...")
	lists := make([][]models.Chunk, 0, len(articles))
	skipped := 0
	for _, article := range articles {
		chunks, err := a.processor.Chunk(article)
		if err != nil {
			a.logger.Debug("skipping article", "title", article.Title, "err", err)
			skipped++
		}
		lists = append(lists, chunks)
		processingBar.Add(1)
	}
	processingBar.Finish()
	color.Green("\n✓ Chunked %d articles (%d without usable content)\n", len(articles)-skipped, skipped)

	batch := a.config.Database.BatchSize
	storageBar := getProgressBar(len(lists), "💾 Storing in vector index...")
	var total store.IndexStats
	for i := 0; i < len(lists); i += batch {
		end := min(i+batch, len(lists))
		stats, err := a.index.Index(ctx, lists[i:end])
		if err != nil {
			return fmt.Errorf("failed to index articles: %w", err)
		}
		total.ArticlesSubmitted += stats.ArticlesSubmitted
		total.ArticlesWithContent += stats.ArticlesWithContent
		total.ChunksIndexed += stats.ChunksIndexed
		storageBar.Add(end - i)
	}
	storageBar.Finish()

	color.Green("\n✓ Indexed %d chunks from %d of %d articles\n",
		total.ChunksIndexed, total.ArticlesWithContent, total.ArticlesSubmitted)
	return nil
}

func runFetch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	query := fs.String("query", "", "CrossRef search query")
	out := fs.String("out", "", "Write articles to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*query) == "" {
		return errors.New("usage: fetch -query q [-out file.json]")
	}

	spinner := getSpinner("🔍 Searching CrossRef...")
	articles, err := a.crossref().Search(ctx, *query)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	if err := writeJSON(*out, articles); err != nil {
		return err
	}
	if *out != "" {
		color.Green("✓ Wrote %d articles to %s\n", len(articles), *out)
	}
	return nil
}

// buildFilters returns exact-match metadata filters for the flags that
// were set.
func buildFilters(year int, riskType, title string) map[string]any {
	filters := map[string]any{}
	if year != 0 {
		filters[models.MetaYear] = year
	}
	if riskType != "" {
		filters[models.MetaRiskType] = riskType
	}
	if title != "" {
		filters[models.MetaTitle] = title
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

func runAsk(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	k := fs.Int("k", a.config.Retrieval.DefaultK, "Number of chunks to retrieve")
	year := fs.Int("year", 0, "Only use chunks from this publication year")
	riskType := fs.String("risk-type", "", "Only use chunks with this risk type")
	title := fs.String("title", "", "Only use chunks of this article")
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return errors.New("usage: ask [-k n] [-year y] [-risk-type t] <question>")
	}

	spinner := getSpinner("🤖 Generating response...")
	answer, err := a.rag.Answer(ctx, question, *k, buildFilters(*year, *riskType, *title))
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	color.New(color.FgCyan).Printf("\nAssistant: ")
	fmt.Println(answer.Answer)
	printSources(answerSources(answer.Sources))
	return nil
}

func answerSources(sources []rag.Source) []sourceLine {
	lines := make([]sourceLine, len(sources))
	for i, s := range sources {
		lines[i] = sourceLine{title: s.Title, year: s.Year, meta: s.RiskType}
	}
	return lines
}

func runChat(ctx context.Context, a *app, args []string) error {
	color.Cyan("\nChat with your literature knowledge base (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}

		querySpinner := getSpinner("🔍 Searching articles...")
		prompt, err := a.rag.Prepare(ctx, query, a.config.Retrieval.DefaultK, nil)
		querySpinner.Finish()
		fmt.Print("\r")
		if err != nil {
			color.Red("Error querying articles: %v\n", err)
			continue
		}

		if a.config.UI.Streaming {
			fmt.Print("\n")
			assistantPrompt("Assistant: ")
			for chunk := range a.chatEngine.ChatStream(ctx, prompt.Context, prompt.Instruction) {
				if chunk.Err != nil {
					color.Red("Error: %v", chunk.Err)
					break
				}
				assistantPrompt("%s", chunk.Text)
			}
			fmt.Print("\n")
		} else {
			responseSpinner := getSpinner("🤖 Generating response...")
			response, err := a.chatEngine.Complete(ctx, prompt.Context, prompt.Instruction)
			responseSpinner.Finish()
			fmt.Print("\r")
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			assistantPrompt("Assistant: %s\n", response)
		}
		printSources(answerSources(prompt.Sources))

		if ctx.Err() != nil {
			break
		}
	}

	return scanner.Err()
}

// splitTitles parses a ";" separated title list.
func splitTitles(s string) []string {
	var titles []string
	for _, t := range strings.Split(s, ";") {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

func runSummarize(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	titles := fs.String("titles", "", "Article titles separated by ';'")
	focus := fs.String("focus", "", "Optional question to focus the synthesis")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list := splitTitles(*titles)
	if len(list) == 0 {
		return errors.New("usage: summarize -titles \"a;b\" [-focus q]")
	}

	spinner := getSpinner("🧩 Synthesizing articles...")
	summary, err := a.rag.SummarizeAcross(ctx, list, *focus)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	if summary.ArticlesFound == 0 {
		color.Yellow("%s\n", summary.Summary)
		return nil
	}

	color.Cyan("\nSynthesis of %d articles (%d chunks):\n", summary.ArticlesFound, summary.TotalChunksAnalyzed)
	fmt.Println(summary.Summary)

	lines := make([]sourceLine, len(summary.ArticlesAnalyzed))
	for i, ref := range summary.ArticlesAnalyzed {
		lines[i] = sourceLine{title: ref.Title, year: ref.Year, meta: ref.Authors}
	}
	printSources(lines)
	return nil
}

func runGaps(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("gaps", flag.ContinueOnError)
	domain := fs.String("domain", rag.DefaultDomain, "Research domain to analyze")
	k := fs.Int("k", a.config.Retrieval.DomainK, "Number of chunks to sample")
	if err := fs.Parse(args); err != nil {
		return err
	}

	spinner := getSpinner("🧭 Looking for research gaps...")
	gaps, err := a.rag.SampleDomain(ctx, *domain, *k)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	if gaps.GapAnalysis == "" {
		for _, g := range gaps.Gaps {
			color.Yellow("%s\n", g)
		}
		return nil
	}

	color.Cyan("\nResearch gaps in %s (%d articles sampled):\n", gaps.Domain, gaps.ArticlesAnalyzed)
	fmt.Println(gaps.GapAnalysis)
	if len(gaps.CoverageAreas) > 0 {
		color.Yellow("\nCoverage: %s\n", strings.Join(gaps.CoverageAreas, ", "))
	}
	return nil
}

func runGraph(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	kindFlag := fs.String("kind", string(graph.KindAuthor), "Network kind: author, keyword or article")
	threshold := fs.Float64("threshold", a.config.Graph.SimilarityThreshold, "Article similarity threshold")
	out := fs.String("out", "", "Write the full graph as JSON to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: graph [-kind k] [-threshold t] [-out file] <articles.json>")
	}

	kind, err := graph.ParseKind(*kindFlag)
	if err != nil {
		return err
	}
	articles, err := readArticles(fs.Arg(0))
	if err != nil {
		return err
	}

	report, err := graph.Build(kind, articles, *threshold)
	if err != nil {
		return err
	}

	printGraphStats(report)
	if *out != "" {
		if err := writeJSON(*out, report); err != nil {
			return err
		}
		color.Green("✓ Wrote %s network to %s\n", kind, *out)
	}
	return nil
}

func printGraphStats(report graph.Report) {
	color.Cyan("\n%s network\n", cases.Title(language.Und).String(string(report.Kind)))
	fmt.Printf("  nodes: %d\n  edges: %d\n", report.Stats.Nodes, report.Stats.Edges)
	if s := report.Stats.Structure; s != nil {
		fmt.Printf("  density: %.4f\n  components: %d\n  degree: avg %.2f, min %d, max %d\n",
			s.Density, s.ConnectedComponents, s.AvgDegree, s.MinDegree, s.MaxDegree)
	}
}

func printCycle(summary monitor.CycleSummary) {
	if summary.Status == monitor.StatusDisabled {
		color.Yellow("Monitoring is disabled\n")
		return
	}
	color.Green("✓ Monitoring cycle finished in %.1fs: %d new articles, %d chunks indexed\n",
		summary.DurationSeconds, summary.TotalArticlesProcessed, summary.Index.ChunksIndexed)
	topics := make([]string, 0, len(summary.TopicResults))
	for topic := range summary.TopicResults {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		fmt.Printf("  %-32s %d\n", topic, summary.TopicResults[topic])
	}
}

func runMonitor(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	once := fs.Bool("once", false, "Run a single cycle and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := a.monitor()
	cfg := monitorConfig(a.config.Monitor)

	if *once {
		spinner := getSpinner("📡 Monitoring new articles...")
		summary, err := m.RunCycle(ctx, cfg)
		spinner.Finish()
		fmt.Print("\r")
		if err != nil {
			return err
		}
		printCycle(summary)
		return nil
	}

	interval := time.Duration(a.config.Monitor.IntervalHours) * time.Hour
	color.Cyan("Monitoring %d topics every %s (Ctrl-C to stop)\n", len(cfg.Topics), interval)

	err := m.Schedule(ctx, interval, func() monitor.Config { return cfg }, printCycle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runStats(ctx context.Context, a *app, _ []string) error {
	stats := a.rag.Stats(ctx)
	if stats.Error != "" {
		color.Red("Stats unavailable: %s\n", stats.Error)
		return nil
	}
	color.Cyan("Collection %s: %d chunks\n", stats.CollectionName, stats.TotalDocuments)

	status := a.monitor().Status(monitorConfig(a.config.Monitor))
	fmt.Printf("Monitoring enabled: %t, topics: %d, processed articles: %d\n",
		status.Enabled, len(status.Topics), status.ProcessedArticlesCount)
	return nil
}

func runReset(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "Confirm deletion of every indexed chunk")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("reset deletes every indexed chunk; pass -yes to confirm")
	}
	if err := a.index.Reset(ctx); err != nil {
		return err
	}
	color.Green("✓ Index cleared\n")
	return nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.config.Server.Addr, "Listen address")
	withMonitor := fs.Bool("monitor", false, "Run the monitoring schedule alongside the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := server.New(server.Deps{
		RAG:                 a.rag,
		Index:               a.index,
		Processor:           a.processor,
		SimilarityThreshold: a.config.Graph.SimilarityThreshold,
		Logger:              a.logger.WithPrefix("server"),
	})

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gCtx, *addr)
	})
	if *withMonitor {
		m := a.monitor()
		cfg := monitorConfig(a.config.Monitor)
		interval := time.Duration(a.config.Monitor.IntervalHours) * time.Hour
		g.Go(func() error {
			return m.Schedule(gCtx, interval, func() monitor.Config { return cfg }, nil)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
