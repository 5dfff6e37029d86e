package models

// Action identifies the pipeline phase a job descriptor asks for.
type Action string

// Action constants. The wire values are fixed: continuation descriptors are
// re-submitted verbatim by the invoker.
const (
	ActionProcessLocation Action = "process.location"
	ActionProcessMenu     Action = "process.menu"
	ActionProcessPostMenu Action = "process.post.menu"
	ActionMakeCSV         Action = "make.csv"
	ActionProcessLogs     Action = "process.logs"
	ActionNone            Action = "None" // Terminal, nothing left to run
)

// IsValid checks if the Action is a known phase or the terminal action
func (a Action) IsValid() bool {
	switch a {
	case ActionProcessLocation, ActionProcessMenu, ActionProcessPostMenu,
		ActionMakeCSV, ActionProcessLogs, ActionNone:
		return true
	}
	return false
}

// IsTerminal reports whether no further invocation is required.
func (a Action) IsTerminal() bool {
	return a == ActionNone
}

// String returns the string representation of the Action
func (a Action) String() string {
	return string(a)
}

// LogKind returns the log-file kind written by the phase ("locations", "menu", "post_menu").
func (a Action) LogKind() string {
	switch a {
	case ActionProcessLocation:
		return "locations"
	case ActionProcessMenu:
		return "menu"
	case ActionProcessPostMenu:
		return "post_menu"
	}
	return ""
}

// Parser identifies a chain.
type Parser string

const (
	ParserRC        Parser = "rc"
	ParserDaves     Parser = "daves"
	ParserZaxbys    Parser = "zaxbys"
	ParserChickfila Parser = "chickfila"
	ParserKFC       Parser = "kfc"
	ParserWendy     Parser = "wendy"
	ParserPopeyes   Parser = "popeyes"
	ParserCJR       Parser = "cjr"
	ParserHardees   Parser = "hardees"
	ParserCPY       Parser = "cpy"
	ParserOrange    Parser = "orange"
	ParserSolidcore Parser = "solidcore"
	ParserYogaSix   Parser = "yogasix"
	ParserImtiaz    Parser = "imtiaz"
	ParserMetro     Parser = "metro"
)

// AllParsers returns every known chain identifier
func AllParsers() []Parser {
	return []Parser{
		ParserRC, ParserDaves, ParserZaxbys, ParserChickfila, ParserKFC,
		ParserWendy, ParserPopeyes, ParserCJR, ParserHardees, ParserCPY,
		ParserOrange, ParserSolidcore, ParserYogaSix, ParserImtiaz, ParserMetro,
	}
}

// IsValid checks if the Parser is a known chain
func (p Parser) IsValid() bool {
	for _, known := range AllParsers() {
		if p == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the Parser
func (p Parser) String() string {
	return string(p)
}
