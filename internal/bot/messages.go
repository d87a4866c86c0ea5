package bot

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"coinkeeper/internal/core"
	"coinkeeper/internal/flow"
	"coinkeeper/internal/session"
	"coinkeeper/internal/stats"
)

const (
	// maxDetailRows and maxMessageUnits keep a report inside a single chat
	// message. Telegram counts its 4096 character limit in UTF-16 units.
	maxDetailRows   = 40
	maxMessageUnits = 4000
	maxDetailDesc   = 48
)

const (
	textAbout = "Coinkeeper keeps track of your incomes and expenses.\n\n" +
		"Add a transaction in a few taps, then check what you earned and spent " +
		"today, this week, this month or over any date range."
	textUnregistered     = "You are not registered yet. Tap \"" + LabelRegister + "\" to get started."
	textFailure          = "Something went wrong. Please try again later."
	textCancelled        = "Cancelled."
	textUseMenu          = "Please use the menu."
	textMainMenu         = "Main menu."
	textChooseStats      = "Which statistics would you like to see?"
	textNoCategories     = "There are no categories to choose from."
	textPromptAmount     = "Enter the amount, e.g. 1500 or 12.50."
	textPromptCategory   = "Choose a category."
	textPromptDate       = "Choose a day of the month or type a date as DD.MM.YYYY."
	textPromptDesc       = "Add a short description."
	textPromptName       = "Let's get you registered. What should I call you?"
	textPromptContact    = "Share your phone number, or type it as +XXXXXXXXXXX."
	textPromptRangeFmt   = "Enter the period for %s as two dates, e.g. 01.01.2025 31.01.2025."
	textAlreadyRegistFmt = "%s, you are already registered."
)

func kindTitle(k core.Kind) string {
	if k == core.KindExpense {
		return "Expense"
	}
	return "Income"
}

func kindPlural(k core.Kind) string {
	if k == core.KindExpense {
		return "expenses"
	}
	return "incomes"
}

func greeting(name string, registered bool) string {
	if name == "" {
		name = "there"
	}
	if registered {
		return fmt.Sprintf("Hi, %s! What would you like to do?", name)
	}
	return fmt.Sprintf("Hi, %s! I help you keep track of your money. Register to start.", name)
}

// prompt returns the question asked in state.
func prompt(s session.Session) string {
	switch s.State {
	case session.AwaitingAmount:
		return textPromptAmount
	case session.AwaitingCategory:
		return textPromptCategory
	case session.AwaitingDate:
		return textPromptDate
	case session.AwaitingDescription:
		return textPromptDesc
	case session.AwaitingName:
		return textPromptName
	case session.AwaitingContact:
		return textPromptContact
	case session.AwaitingRange:
		return fmt.Sprintf(textPromptRangeFmt, kindPlural(s.RangeKind))
	}
	return textUseMenu
}

// rejection explains why an input was not accepted.
func rejection(reason error) string {
	switch {
	case errors.Is(reason, core.ErrInvalidAmount):
		return "That is not a valid amount. Use a positive number."
	case errors.Is(reason, core.ErrOutsideCurrentMonth):
		return "The date must be within the current month."
	case errors.Is(reason, core.ErrInvalidDay):
		return "This month has no such day."
	case errors.Is(reason, core.ErrInvalidDate):
		return "That is not a valid date. Use DD.MM.YYYY."
	case errors.Is(reason, core.ErrInvalidRange):
		return "That is not a valid period. Enter two dates, the earlier one first."
	case errors.Is(reason, core.ErrEmptyDescription):
		return "The description cannot be empty."
	case errors.Is(reason, core.ErrDescriptionTooLong):
		return fmt.Sprintf("The description is too long, keep it under %d characters.", core.MaxDescriptionLength)
	case errors.Is(reason, core.ErrInvalidName):
		return fmt.Sprintf("Please enter a name of at most %d characters.", core.MaxNameLength)
	case errors.Is(reason, core.ErrInvalidContact):
		return "That does not look like a phone number."
	case errors.Is(reason, core.ErrNotFound),
		errors.Is(reason, core.ErrCategoryMismatch),
		errors.Is(reason, flow.ErrUnknownSelection):
		return "That option is no longer available."
	case errors.Is(reason, flow.ErrExpectedSelection):
		return "Please pick one of the options."
	case errors.Is(reason, flow.ErrExpectedText):
		return "Please type your answer."
	}
	return "That input was not accepted."
}

func confirmation(tx core.Transaction, user core.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s saved.\n\n", kindTitle(tx.Kind))
	fmt.Fprintf(&b, "Amount: %s\n", tx.Amount)
	fmt.Fprintf(&b, "Category: %s\n", tx.CategoryName)
	fmt.Fprintf(&b, "Date: %s\n", tx.Date)
	fmt.Fprintf(&b, "Description: %s\n\n", tx.Description)
	fmt.Fprintf(&b, "Balance: %s", user.Balance)
	return b.String()
}

func alreadyRegistered(name string) string {
	return fmt.Sprintf(textAlreadyRegistFmt, name)
}

func registered(user core.User) string {
	return fmt.Sprintf("Welcome, %s! Registration complete.", user.Name)
}

func profile(user core.User, month stats.Overview) string {
	var b strings.Builder
	b.WriteString("Your profile\n\n")
	fmt.Fprintf(&b, "Name: %s\n", user.Name)
	fmt.Fprintf(&b, "Phone: %s\n", user.Contact)
	fmt.Fprintf(&b, "Balance: %s\n\n", user.Balance)
	fmt.Fprintf(&b, "This month (%s)\n", month.Income.Window.Label())
	fmt.Fprintf(&b, "Incomes: %s\n", month.Income.Total)
	fmt.Fprintf(&b, "Expenses: %s\n", month.Expense.Total)
	fmt.Fprintf(&b, "Net: %s", month.Net())
	return b.String()
}

func report(r stats.Report) string {
	if r.Empty() {
		return fmt.Sprintf("No %s for %s.", kindPlural(r.Kind), r.Window.Label())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s\n", kindTitle(r.Kind)+"s", r.Window.Label())
	fmt.Fprintf(&b, "Total: %s\n", r.Total)

	b.WriteString("\nBy category:\n")
	for _, ca := range r.ByCategory {
		fmt.Fprintf(&b, "- %s: %s\n", ca.Name, ca.Amount)
	}

	b.WriteString("\nDetails:\n")
	used := utf16Len(b.String())
	for i, d := range r.Details {
		line := fmt.Sprintf("%s  %s  %s  %s\n", d.Date, d.Category, truncate(d.Description, maxDetailDesc), d.Amount)
		more := fmt.Sprintf("... and %d more\n", len(r.Details)-i)
		if i == maxDetailRows || used+utf16Len(line)+utf16Len(more) > maxMessageUnits {
			b.WriteString(more)
			break
		}
		b.WriteString(line)
		used += utf16Len(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
