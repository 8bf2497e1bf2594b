package logic

// Command describes one operation of the remote: which button to press and how often.
type Command struct {
	Key     rune
	Line    Line
	Presses uint
	Help    string
}

// Commands is the fixed command table, in help order.
var Commands = []Command{
	{Key: '1', Line: LineLevel1, Presses: 1, Help: "Low power mode"},
	{Key: '2', Line: LineLevel2, Presses: 1, Help: "Mid power mode"},
	{Key: '3', Line: LineLevel3, Presses: 1, Help: "High power mode"},
	{Key: 'a', Line: LineAuto, Presses: 1, Help: "Automatic mode"},
	{Key: 'b', Line: LineTimer, Presses: 1, Help: "High power mode for 15 minutes"},
	{Key: 'c', Line: LineTimer, Presses: 2, Help: "High power mode for 30 minutes"},
	{Key: 'd', Line: LineTimer, Presses: 3, Help: "High power mode for 60 minutes"},
	{Key: 'e', Line: LineAbsent, Presses: 1, Help: "Absence mode"},
}

// HelpKey prints the command list on the console.
const HelpKey = '?'

// Lookup returns the command bound to key.
func Lookup(key rune) (Command, bool) {
	for _, c := range Commands {
		if c.Key == key {
			return c, true
		}
	}
	return Command{}, false
}
