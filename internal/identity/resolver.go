// Package identity resolves inbound orders to platform accounts.
//
// Matching runs in strict priority order: a sender-provided account id, then
// the customer email, then a fuzzy name comparison. The first tier that
// produces a match wins and later tiers are not attempted. Fuzzy matching is
// deliberately precision-over-recall: an ambiguous top score is rejected
// rather than guessed, because a wrong account link is worse than an
// unlinked order.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/courseloop/order-intake/internal/domain"
)

// MatchMethodNone is returned when every tier fails. It is a valid terminal
// outcome, not an error; the order persists unlinked.
const (
	MatchMethodNone   = "none"
	MatchMethodUserID = "utm_user_id"
	MatchMethodEmail  = "email"
)

// AccountReader is the read-only view of the accounts table the resolver
// needs. Lookups return (nil, nil) when no row matches.
type AccountReader interface {
	ByID(ctx context.Context, id string) (*domain.Account, error)
	ByEmail(ctx context.Context, email string) (*domain.Account, error)
	ListNamed(ctx context.Context) ([]domain.Account, error)
}

// Input carries the payload fields the resolver consumes, pre-extracted by
// the webhook layer. Name parts are normalized (lowercased, trimmed).
type Input struct {
	UserRef   string
	Email     string
	FirstName string
	LastName  string
	FullName  string
}

type Resolver struct {
	accounts AccountReader
	logger   *slog.Logger
}

func NewResolver(accounts AccountReader, logger *slog.Logger) *Resolver {
	return &Resolver{accounts: accounts, logger: logger}
}

// Resolve returns the matched account id (empty when unmatched) and the
// method label recorded on the order. Only infrastructure failures surface
// as errors; "no match" is a normal result.
func (r *Resolver) Resolve(ctx context.Context, in Input) (string, string, error) {
	if in.UserRef != "" {
		account, err := r.accounts.ByID(ctx, in.UserRef)
		if err != nil {
			return "", "", fmt.Errorf("lookup account by id: %w", err)
		}
		if account != nil {
			return account.ID, MatchMethodUserID, nil
		}
	}

	if in.Email != "" {
		account, err := r.accounts.ByEmail(ctx, normalize(in.Email))
		if err != nil {
			return "", "", fmt.Errorf("lookup account by email: %w", err)
		}
		if account != nil {
			return account.ID, MatchMethodEmail, nil
		}
	}

	if in.LastName != "" {
		id, score, err := r.resolveByName(ctx, in)
		if err != nil {
			return "", "", err
		}
		if id != "" {
			return id, fmt.Sprintf("name_fuzzy(score=%d)", score), nil
		}
	}

	return "", MatchMethodNone, nil
}

type candidate struct {
	id    string
	score int
}

// resolveByName scores every named account and accepts the top candidate
// only when it is alone at its score level. Ties mean ambiguity and resolve
// to no match.
func (r *Resolver) resolveByName(ctx context.Context, in Input) (string, int, error) {
	accounts, err := r.accounts.ListNamed(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("list named accounts: %w", err)
	}

	var candidates []candidate
	for _, account := range accounts {
		score := ScoreNameMatch(normalize(account.FullName), in.FirstName, in.LastName, in.FullName)
		if score >= 40 {
			candidates = append(candidates, candidate{id: account.ID, score: score})
		}
	}

	if len(candidates) == 0 {
		return "", 0, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > 1 && candidates[0].score == candidates[1].score {
		r.logger.Warn("ambiguous name match rejected",
			"last_name", in.LastName,
			"top_score", candidates[0].score,
			"candidates", len(candidates),
		)
		return "", 0, nil
	}

	return candidates[0].id, candidates[0].score, nil
}

// ScoreNameMatch rates how well a profile's full name matches the order's
// name parts. All inputs must be normalized. Levels:
//
//	100 — the combined order name equals the profile name exactly
//	 80 — first names prefix one another and the last name lines up
//	 40 — the last name (2+ chars) appears inside the profile name
//	  0 — no usable signal
func ScoreNameMatch(profileFullName, orderFirst, orderLast, orderFull string) int {
	if profileFullName == "" {
		return 0
	}
	if orderLast == "" && orderFull == "" {
		return 0
	}

	if orderFull != "" && orderFull == profileFullName {
		return 100
	}

	profileFirst, profileLast := splitName(profileFullName)
	if orderFirst != "" && orderLast != "" {
		lastAligns := profileLast == orderLast || strings.Contains(profileFullName, orderLast)
		if firstNamesAlign(profileFirst, orderFirst) && lastAligns {
			return 80
		}
	}

	if len(orderLast) >= 2 && strings.Contains(profileFullName, orderLast) {
		return 40
	}

	return 0
}

// firstNamesAlign accepts prefix relationships in either direction, plus
// offset stems so diminutives like "bob" still line up with "robert" (the
// shared "ob" tail anchors the match).
func firstNamesAlign(a, b string) bool {
	if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
		return true
	}
	if len(a) >= 3 && strings.Contains(b, a[1:]) {
		return true
	}
	if len(b) >= 3 && strings.Contains(a, b[1:]) {
		return true
	}
	return false
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
