package bot

import (
	"strings"

	"coinkeeper/internal/core"
)

type command string

const (
	cmdStart      command = "start"
	cmdMenu       command = "menu"
	cmdProfile    command = "profile"
	cmdRegister   command = "register"
	cmdAbout      command = "about"
	cmdStats      command = "stats"
	cmdAddIncome  command = "income"
	cmdAddExpense command = "expense"
	cmdCancel     command = "cancel"
)

// Reply keyboard labels. A text event equal to a label is a command, even in
// the middle of a flow.
const (
	LabelProfile    = "Profile"
	LabelRegister   = "Register"
	LabelAbout      = "About"
	LabelStats      = "Statistics"
	LabelAddIncome  = "Add income"
	LabelAddExpense = "Add expense"
	LabelMenu       = "Main menu"
	LabelCancel     = "Cancel"
)

var labelCommands = map[string]command{
	LabelProfile:    cmdProfile,
	LabelRegister:   cmdRegister,
	LabelAbout:      cmdAbout,
	LabelStats:      cmdStats,
	LabelAddIncome:  cmdAddIncome,
	LabelAddExpense: cmdAddExpense,
	LabelMenu:       cmdMenu,
	LabelCancel:     cmdCancel,
}

// parseCommand accepts "/start", "start", "/start@SomeBot" and menu labels.
func parseCommand(s string) (command, bool) {
	s = strings.TrimSpace(s)
	if cmd, ok := labelCommands[s]; ok {
		return cmd, true
	}
	s = strings.TrimPrefix(s, "/")
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	switch cmd := command(strings.ToLower(s)); cmd {
	case cmdStart, cmdMenu, cmdProfile, cmdRegister, cmdAbout, cmdStats, cmdAddIncome, cmdAddExpense, cmdCancel:
		return cmd, true
	}
	return "", false
}

const statsPrefix = "stats"

func statsPayload(kind core.Kind, p core.Period) string {
	return statsPrefix + ":" + kind.String() + ":" + string(p)
}

func parseStatsPayload(s string) (core.Kind, core.Period, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] != statsPrefix {
		return "", "", false
	}
	kind, err := core.ParseKind(parts[1])
	if err != nil {
		return "", "", false
	}
	p, err := core.ParsePeriod(parts[2])
	if err != nil {
		return "", "", false
	}
	return kind, p, true
}
