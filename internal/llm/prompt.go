package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UserContext carries optional per-user prompt enrichment. Preferences is an
// opaque JSON blob; malformed data is ignored rather than rejected.
type UserContext struct {
	Location    string
	Preferences json.RawMessage
}

type preferences struct {
	DietaryRestrictions []string `json:"dietary_restrictions"`
	FitnessLevel        string   `json:"fitness_level"`
	BudgetRange         string   `json:"budget_range"`
}

// AugmentInstructions builds the instruction turn from the category's base
// prompt, the user's context and the current date. The result is fully
// determined by its inputs: same base, context and date always produce the
// same text.
func AugmentInstructions(base string, uc UserContext, now time.Time) string {
	var b strings.Builder
	b.WriteString(base)

	if uc.Location != "" {
		fmt.Fprintf(&b, "\n\nBenutzer-Standort: %s. Berücksichtige lokale Geschäfte und Angebote in dieser Region.", uc.Location)
	}

	if len(uc.Preferences) > 0 {
		var p preferences
		if err := json.Unmarshal(uc.Preferences, &p); err == nil {
			if len(p.DietaryRestrictions) > 0 {
				fmt.Fprintf(&b, "\n\nErnährungseinschränkungen: %s", strings.Join(p.DietaryRestrictions, ", "))
			}
			if p.FitnessLevel != "" {
				fmt.Fprintf(&b, "\n\nFitness-Level: %s", p.FitnessLevel)
			}
			if p.BudgetRange != "" {
				fmt.Fprintf(&b, "\n\nBudget-Bereich: %s", p.BudgetRange)
			}
		}
	}

	fmt.Fprintf(&b, "\n\nAktuelles Datum: %s", now.Format("02.01.2006"))

	b.WriteString("\n\nAntworte immer auf Deutsch, sei konkret und hilfreich. Strukturiere deine Antworten mit Aufzählungen oder Schritten, wenn das sinnvoll ist.")

	return b.String()
}

// BuildContext assembles the prompt for one generation call: exactly one
// instruction turn, the historical window in the order given (oldest first),
// and the new user content as the final turn.
func BuildContext(instructions string, history []Message, newContent string) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: instructions})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: newContent})
	return messages
}
