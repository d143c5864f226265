package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/config"
	"github.com/studyforge/backend/internal/database"
	"github.com/studyforge/backend/internal/llm"
	"github.com/studyforge/backend/internal/models"
	"github.com/studyforge/backend/internal/repository"
	"github.com/studyforge/backend/internal/services"
	"github.com/studyforge/backend/pkg/utils"
)

var (
	courseID   = flag.String("course", "", "course id to attach imported materials to")
	courseName = flag.String("course-name", "", "create a new course with this name if no -course id is given")
	urlList    = flag.String("urls", "", "comma-separated list of page URLs to import")
	category   = flag.String("category", "theory", "material category (theory or lab)")
	delay      = flag.Duration("delay", 1*time.Second, "delay between page fetches")
	dryRun     = flag.Bool("dry-run", false, "scrape and report without writing anything")
	verbose    = flag.Bool("verbose", false, "enable debug logging")
)

// PageImporter scrapes course pages and feeds them to material ingestion.
type PageImporter struct {
	materials *services.MaterialService
	logger    *logrus.Logger
	delay     time.Duration
	dryRun    bool
	errors    []error
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	urls := splitURLs(*urlList)
	if len(urls) == 0 {
		logger.Fatal("No URLs given, pass -urls=https://example.com/page1,https://example.com/page2")
	}

	logger.WithField("pages", len(urls)).Info("Starting course material import")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	var importer *PageImporter
	var targetCourse uuid.UUID

	if *dryRun {
		importer = NewPageImporter(nil, logger, *delay, true)
	} else {
		if err := cfg.ValidateOpenAI(); err != nil {
			logger.WithError(err).Fatal("Invalid OpenAI configuration")
		}

		dbManager, err := database.NewManager(&database.Config{
			DatabaseURL: cfg.Database.URL,
			RedisURL:    cfg.Redis.URL,
			LogLevel:    os.Getenv("LOG_LEVEL"),
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database manager")
		}
		defer dbManager.Close()

		if err := dbManager.Migrate(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}

		repos := repository.NewRepositoryManager(dbManager.DB)
		llmClient := llm.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, cfg.OpenAI.EmbeddingModel, logger)
		llmService := llm.NewService(llmClient, logger)
		materialService := services.NewMaterialService(repos.Course, repos.Material, repos.Chunk, llmService, logger)

		targetCourse, err = resolveCourse(repos, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to resolve target course")
		}

		importer = NewPageImporter(materialService, logger, *delay, false)
	}

	ctx := context.Background()
	imported := importer.ImportPages(ctx, targetCourse, urls, *category)

	logger.WithFields(logrus.Fields{
		"imported": imported,
		"errors":   len(importer.errors),
	}).Info("Import completed")

	if len(importer.errors) > 0 {
		for _, err := range importer.errors {
			logger.WithError(err).Warn("Import error")
		}
		os.Exit(1)
	}
}

func NewPageImporter(materials *services.MaterialService, logger *logrus.Logger, delay time.Duration, dryRun bool) *PageImporter {
	return &PageImporter{
		materials: materials,
		logger:    logger,
		delay:     delay,
		dryRun:    dryRun,
		errors:    make([]error, 0),
	}
}

// ImportPages fetches each URL in turn and ingests its text content as a
// material. Failures are collected, not fatal, so one bad page does not
// abort the run.
func (p *PageImporter) ImportPages(ctx context.Context, courseID uuid.UUID, urls []string, category string) int {
	imported := 0

	for i, pageURL := range urls {
		p.logger.WithFields(logrus.Fields{
			"url":      pageURL,
			"progress": fmt.Sprintf("%d/%d", i+1, len(urls)),
		}).Info("Fetching page")

		title, content, err := p.fetchPage(pageURL)
		if err != nil {
			p.errors = append(p.errors, fmt.Errorf("fetch %s: %w", pageURL, err))
			continue
		}

		p.logger.WithFields(logrus.Fields{
			"url":            pageURL,
			"title":          title,
			"content_length": len(content),
		}).Debug("Page fetched")

		if p.dryRun {
			p.logger.WithField("title", title).Info("Dry run, skipping ingestion")
			imported++
			continue
		}

		material, err := p.materials.Ingest(ctx, services.IngestInput{
			CourseID:  courseID,
			Title:     title,
			Content:   content,
			FileType:  "url",
			Category:  category,
			SourceURL: pageURL,
		})
		if err != nil {
			p.errors = append(p.errors, fmt.Errorf("ingest %s: %w", pageURL, err))
			continue
		}

		p.logger.WithFields(logrus.Fields{
			"material_id": material.ID,
			"chunks":      material.ChunkCount,
		}).Info("Material ingested")
		imported++

		time.Sleep(p.delay)
	}

	return imported
}

func (p *PageImporter) fetchPage(pageURL string) (string, string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid url")
	}

	var title string
	var blocks []string
	var fetchErr error

	c := colly.NewCollector(
		colly.UserAgent("StudyForge-Importer/1.0"),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  parsed.Host,
		Parallelism: 1,
		Delay:       p.delay,
	})
	c.SetRequestTimeout(30 * time.Second)

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
	})

	c.OnHTML("h1, h2, h3, p, li, pre", func(e *colly.HTMLElement) {
		text := normalizeWhitespace(e.Text)
		if len(text) < 20 {
			return
		}
		if strings.HasPrefix(e.Name, "h") {
			blocks = append(blocks, "\n"+text+"\n")
			return
		}
		blocks = append(blocks, text)
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return "", "", err
	}
	c.Wait()

	if fetchErr != nil {
		return "", "", fetchErr
	}

	content := strings.Join(blocks, "\n\n")
	if title == "" {
		title = parsed.Host + parsed.Path
	}

	return title, content, nil
}

func resolveCourse(repos *repository.RepositoryManager, logger *logrus.Logger) (uuid.UUID, error) {
	if *courseID != "" {
		id, err := uuid.Parse(*courseID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid course id: %w", err)
		}
		exists, err := repos.Course.Exists(id)
		if err != nil {
			return uuid.Nil, err
		}
		if !exists {
			return uuid.Nil, fmt.Errorf("course %s not found", id)
		}
		return id, nil
	}

	if *courseName == "" {
		return uuid.Nil, fmt.Errorf("pass either -course or -course-name")
	}

	course := &models.Course{Name: *courseName}
	if err := repos.Course.Create(course); err != nil {
		return uuid.Nil, err
	}
	logger.WithField("course_id", course.ID).Info("Created course")
	return course.ID, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func splitURLs(raw string) []string {
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
