package cmd

import (
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sasank-xyz/github-for-jira/internal/ghapp"
)

var (
	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Options.SeparateRows = false
}

// expiresIn renders the remaining lifetime of a token, red once it is close to expiry.
func expiresIn(expiresAt time.Time) string {
	remaining := time.Until(expiresAt).Round(time.Second)
	if remaining <= 0 {
		return color.RedString("expired")
	}
	s := "in " + remaining.String()
	if remaining < 5*time.Minute {
		return color.YellowString(s)
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// validateKey checks that the key can sign an app token.
func validateKey(appID int64, key []byte) error {
	holder, err := ghapp.NewAppTokenHolder(appID, key)
	if err != nil {
		return err
	}
	_, err = holder.Token()
	return err
}
