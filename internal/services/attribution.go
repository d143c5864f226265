package services

import (
	"strconv"
	"strings"

	"github.com/studyforge/backend/internal/models"
)

// maxAttributedSources caps the fallback attribution when the generator
// did not report which sources it used. Reported citations are never
// capped; the generator may cite any retrieved item.
const maxAttributedSources = 5

// SourceUsage is the generator's report of which retrieved items it
// actually referenced. Indexes are zero-based into the HybridResult
// groups. Reported is false when the generator said nothing, in which
// case attribution falls back to course-only.
type SourceUsage struct {
	Course   []int
	Web      []int
	Reported bool
}

// BuildAttribution maps a HybridResult into the attribution attached to
// generated content and chat replies. The mix ratio is the fraction of
// cited sources that came from the web; it is omitted entirely when no
// sources are present.
func BuildAttribution(result *models.HybridResult, usage SourceUsage) models.SourceAttribution {
	var citedCourse []models.SearchHit
	var citedWeb []models.WebHit

	if usage.Reported {
		// Indexes resolve against the full retrieval groups so every
		// cited source survives into the attribution.
		for _, idx := range usage.Course {
			if idx >= 0 && idx < len(result.CourseResults) {
				citedCourse = append(citedCourse, result.CourseResults[idx])
			}
		}
		for _, idx := range usage.Web {
			if idx >= 0 && idx < len(result.WebResults) {
				citedWeb = append(citedWeb, result.WebResults[idx])
			}
		}
	} else {
		// No usage report: attribute to course materials only
		citedCourse = capHits(result.CourseResults)
	}

	attribution := models.SourceAttribution{
		Course: make([]models.CourseSource, 0, len(citedCourse)),
	}
	for _, hit := range citedCourse {
		attribution.Course = append(attribution.Course, models.CourseSource{
			Title:     hit.MaterialTitle,
			Type:      hit.FileType,
			Relevance: hit.RelevanceScore,
		})
	}
	for _, hit := range citedWeb {
		attribution.Web = append(attribution.Web, models.WebSource{
			Title: hit.Title,
			URL:   hit.URL,
		})
	}

	total := len(attribution.Course) + len(attribution.Web)
	if total > 0 {
		ratio := float64(len(attribution.Web)) / float64(total)
		attribution.SourceMixRatio = &ratio
	}

	return attribution
}

const sourcesUsedPrefix = "SOURCES_USED:"

// ParseSourceUsage extracts the generator's SOURCES_USED report from its
// output and returns the content with the report line stripped. Tokens
// look like C1 or W2, one-based within each group.
func ParseSourceUsage(content string) (string, SourceUsage) {
	lines := strings.Split(content, "\n")
	usage := SourceUsage{}
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, sourcesUsedPrefix) {
			kept = append(kept, line)
			continue
		}

		usage.Reported = true
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, sourcesUsedPrefix))
		for _, token := range strings.FieldsFunc(rest, func(r rune) bool {
			return r == ',' || r == ' '
		}) {
			token = strings.TrimSpace(token)
			if len(token) < 2 {
				continue
			}
			n, err := strconv.Atoi(token[1:])
			if err != nil || n < 1 {
				continue
			}
			switch token[0] {
			case 'C', 'c':
				usage.Course = append(usage.Course, n-1)
			case 'W', 'w':
				usage.Web = append(usage.Web, n-1)
			}
		}
	}

	return strings.TrimSpace(strings.Join(kept, "\n")), usage
}

func capHits(hits []models.SearchHit) []models.SearchHit {
	if len(hits) > maxAttributedSources {
		return hits[:maxAttributedSources]
	}
	return hits
}
