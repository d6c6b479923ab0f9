package server

import "strings"

// Chat commands
const (
	cmdSetConvention       = "/set-convention"
	cmdShowConvention      = "/convention"
	cmdReconcile           = "/reconcile"
	cmdRecommendConvention = "/recommend-convention"
	cmdHelp                = "/help"
)

// command is a parsed chat command
type command struct {
	name string
	arg  string
}

// parseCommand splits "/name rest of text" into name and argument.
// Mention placeholders are already stripped by the client. Returns false
// for text that is not a command.
func parseCommand(text string) (command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return command{}, false
	}

	name, arg, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(name, "\t\n"); i >= 0 {
		name, arg = name[:i], text[i:]
	}
	return command{
		name: strings.ToLower(name),
		arg:  strings.TrimSpace(arg),
	}, true
}

// CommandMessages are the reply templates for chat commands
// {pattern}, {job_id}, {source} and {usage} are substituted
type CommandMessages struct {
	Usage           string
	GroupOnly       string
	ShowConvention  string
	NoConvention    string
	ReconcileQueued string
	ReconcileFailed string
	Recommendation  string
	InternalError   string
}

// DefaultCommandMessages are used when no template file is configured
var DefaultCommandMessages = CommandMessages{
	Usage: "Commands:\n" +
		"/set-convention <pattern>  set this channel's naming convention, `*` matches anything\n" +
		"/set-convention            remove this channel's naming convention\n" +
		"/convention                show the current convention\n" +
		"/reconcile                 invite every matching member now\n" +
		"/recommend-convention      suggest a convention for this channel",
	GroupOnly:       "Conventions belong to group chats. Run this command in the channel you want to configure.",
	ShowConvention:  "This channel's naming convention is `{pattern}`.",
	NoConvention:    "This channel has no naming convention. {usage}",
	ReconcileQueued: "Reconciliation for `{pattern}` started (job {job_id}).",
	ReconcileFailed: "Could not start reconciliation, please try again later.",
	Recommendation:  "Suggested convention: `{pattern}` ({source}). Apply it with `/set-convention {pattern}`.",
	InternalError:   "Something went wrong, please try again later.",
}

func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
