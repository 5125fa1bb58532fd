package makefile

import "strings"

// Silent prefixes a recipe command so make does not echo it.
func Silent(command string) string {
	return "@" + command
}

// Echo returns a silent recipe line printing a bold [POLYBUILD] tagged
// progress message. The message is double quoted for the shell; make
// variables such as $@ inside it are still expanded by make.
func Echo(message string) string {
	return Silent(`printf "\033[1m[POLYBUILD]\033[0m %s\n" ` + Quote(message))
}

// Quote wraps s in double quotes, escaping embedded quotes and backslashes.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
