package usecase

import "mechanic-assistant/internal/domain"

// MaxHistoryTurns bounds the transcript forwarded to the provider.
const MaxHistoryTurns = 20

// NormalizeHistory returns a copy of turns that is empty or starts with a user
// turn and holds at most MaxHistoryTurns entries, keeping the most recent ones.
// Turns with a role other than user or assistant are discarded.
func NormalizeHistory(turns []domain.ChatTurn) []domain.ChatTurn {
	out := dropLeadingNonUser(knownRoles(turns))
	if len(out) > MaxHistoryTurns {
		// Truncation can cut into a pair, so realign on a user turn.
		out = dropLeadingNonUser(out[len(out)-MaxHistoryTurns:])
	}
	return out
}

func knownRoles(turns []domain.ChatTurn) []domain.ChatTurn {
	out := make([]domain.ChatTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role == domain.RoleUser || t.Role == domain.RoleAssistant {
			out = append(out, t)
		}
	}
	return out
}

func dropLeadingNonUser(turns []domain.ChatTurn) []domain.ChatTurn {
	for i, t := range turns {
		if t.Role == domain.RoleUser {
			return turns[i:]
		}
	}
	return turns[:0]
}
