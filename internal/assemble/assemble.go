// Package assemble turns the grouped, scored articles of one run into
// the final digest payload: relevance-threshold filtering, display
// ordering, and the HTML and plain-text rendering handed to delivery.
package assemble

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"dailybrief/internal/domain/entity"
)

// Input bundles everything one digest build needs from the rest of the
// run. GeneratedAt is stamped by the caller so assembly itself never
// has to agree with the workflow about clocks.
type Input struct {
	User        entity.UserConfig
	Groups      []entity.ArticleGroup
	Relevance   map[string]entity.RelevanceResult
	GeneratedAt time.Time

	// Failure counts surfaced in the payload metadata so the sending
	// layer can annotate or suppress a degraded digest.
	SourceFailures int
	AIFailures     int
}

// Assembler renders digest payloads. It is stateless apart from the
// parsed templates and safe for concurrent use.
type Assembler struct {
	renderer *renderer
	logger   *slog.Logger
}

// New builds an assembler with the default digest look.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		renderer: newRenderer(defaultPalette()),
		logger:   logger,
	}
}

// Build filters the groups by the profile threshold, orders them for
// display and renders both bodies. A run with nothing left after
// filtering still yields a payload; it renders the empty state and
// reports zero groups.
func (a *Assembler) Build(in Input) (entity.DigestPayload, error) {
	start := time.Now()

	groups := filterGroups(in.Groups, in.Relevance)
	orderGroups(groups, in.Relevance)

	local := in.GeneratedAt.In(in.User.Location())
	htmlBody, err := a.renderer.renderHTML(groups, local, in.GeneratedAt)
	if err != nil {
		return entity.DigestPayload{}, fmt.Errorf("render html body: %w", err)
	}
	textBody := a.renderer.renderText(groups, local, in.GeneratedAt)

	totalArticles := 0
	summaries := make([]entity.GroupSummary, 0, len(groups))
	for _, g := range groups {
		totalArticles += len(g.Members)
		summaries = append(summaries, entity.GroupSummary{
			PrimaryTitle: g.Primary.Title,
			PrimaryURL:   g.Primary.URL,
			MemberCount:  len(g.Members),
			Topics:       g.AggregatedTopics,
		})
	}

	payload := entity.DigestPayload{
		UserID:              in.User.UserID,
		Email:               in.User.Email,
		GenerationTimestamp: in.GeneratedAt,
		HTMLBody:            htmlBody,
		TextBody:            textBody,
		GroupsSummary:       summaries,
		Metadata: entity.DigestMetadata{
			TotalGroups:    len(groups),
			TotalArticles:  totalArticles,
			HTMLSize:       len(htmlBody),
			TextSize:       len(textBody),
			AssemblyMillis: time.Since(start).Milliseconds(),
			SourceFailures: in.SourceFailures,
			AIFailures:     in.AIFailures,
		},
	}

	a.logger.Debug("digest assembled",
		slog.String("user_id", in.User.UserID),
		slog.Int("groups", len(groups)),
		slog.Int("articles", totalArticles),
		slog.Int("html_bytes", len(htmlBody)),
		slog.Int("text_bytes", len(textBody)))

	return payload, nil
}

// filterGroups applies the relevance threshold. A group whose primary
// does not pass is dropped whole; otherwise members below threshold
// are dropped individually. An article missing from the relevance
// table counts as not passing.
func filterGroups(groups []entity.ArticleGroup, relevance map[string]entity.RelevanceResult) []entity.ArticleGroup {
	out := make([]entity.ArticleGroup, 0, len(groups))
	for _, g := range groups {
		if !relevance[g.Primary.URL].PassesThreshold {
			continue
		}
		members := make([]entity.Article, 0, len(g.Members))
		for _, m := range g.Members {
			if relevance[m.URL].PassesThreshold {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			continue
		}
		g.Members = members
		out = append(out, g)
	}
	return out
}

// orderGroups sorts groups by their primary's display rank and puts
// each group's members in display order, primary first.
func orderGroups(groups []entity.ArticleGroup, relevance map[string]entity.RelevanceResult) {
	for i := range groups {
		orderMembers(&groups[i], relevance)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return displayBefore(groups[i].Primary, groups[j].Primary, relevance)
	})
}

// orderMembers rebuilds the member list as primary first, then the
// remaining members by display rank.
func orderMembers(g *entity.ArticleGroup, relevance map[string]entity.RelevanceResult) {
	rest := make([]entity.Article, 0, len(g.Members))
	for _, m := range g.Members {
		if m.URL != g.Primary.URL {
			rest = append(rest, m)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return displayBefore(rest[i], rest[j], relevance)
	})
	g.Members = append([]entity.Article{g.Primary}, rest...)
}

// displayBefore is the display comparator: relevance descending, then
// quality descending, then most recent first.
func displayBefore(a, b entity.Article, relevance map[string]entity.RelevanceResult) bool {
	ra, rb := relevance[a.URL].RelevanceScore, relevance[b.URL].RelevanceScore
	if ra != rb {
		return ra > rb
	}
	qa, _ := a.QualityScore()
	qb, _ := b.QualityScore()
	if qa != qb {
		return qa > qb
	}
	return a.PublishedAt.After(b.PublishedAt)
}
