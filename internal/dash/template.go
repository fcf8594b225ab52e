package dash

import (
	"regexp"
	"strconv"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\$(\w+)%(0?)(\d*)([diouxX])\$`)

// fillTemplate substitutes $RepresentationID$, $Number$, $Time$, $Bandwidth$
// (bare or with a printf-style width specifier, e.g. $Number%05d$) in a
// SegmentTemplate media/initialization pattern. $$ escapes to a literal $.
func fillTemplate(tmpl, repID string, number, timeVal int64, bandwidth int) string {
	if tmpl == "" {
		return ""
	}

	const escapeSentinel = "\x00"
	result := strings.ReplaceAll(tmpl, "$$", escapeSentinel)
	result = strings.ReplaceAll(result, "$RepresentationID$", repID)
	result = strings.ReplaceAll(result, "$Number$", strconv.FormatInt(number, 10))
	result = strings.ReplaceAll(result, "$Time$", strconv.FormatInt(timeVal, 10))
	result = strings.ReplaceAll(result, "$Bandwidth$", strconv.Itoa(bandwidth))

	result = placeholderRe.ReplaceAllStringFunc(result, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		varName, zeroFlag, widthStr := groups[1], groups[2], groups[3]

		var value string
		switch varName {
		case "RepresentationID":
			return repID
		case "Number":
			value = strconv.FormatInt(number, 10)
		case "Time":
			value = strconv.FormatInt(timeVal, 10)
		case "Bandwidth":
			value = strconv.Itoa(bandwidth)
		default:
			return match
		}

		if widthStr == "" {
			return value
		}
		width, err := strconv.Atoi(widthStr)
		if err != nil || width <= 0 {
			return value
		}
		padChar := byte(' ')
		if zeroFlag == "0" {
			padChar = '0'
		}
		for len(value) < width {
			value = string(padChar) + value
		}
		return value
	})

	return strings.ReplaceAll(result, escapeSentinel, "$")
}
