// internal/app/message.go
package app

import (
	"fmt"
	"net/url"
	"strings"

	"pvpq_health_check/internal/domain/activity"
)

// Characters that must be escaped in MarkdownV2 text outside of entities.
var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
	"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// Inside (...) of an inline link only ')' and '\' are escaped.
var markdownV2LinkEscaper = strings.NewReplacer(`\`, `\\`, ")", `\)`)

// FormatStaleMessage renders the alert for a pair that has not been updated for elapsedMinutes.
//
//	No updates for `4 hours` and `0 minutes` in EU shuffle on pvpq\.net: [EU activity in shuffle](https://pvpq.net/eu/activity/shuffle)
func FormatStaleMessage(siteURL string, pair activity.Pair, elapsedMinutes int64) string {
	label := activity.RegionName(pair.Region)
	site := strings.TrimRight(siteURL, "/")
	link := fmt.Sprintf("%s/%s/activity/%s", site, activity.SitePath(pair.Region), url.PathEscape(pair.Bracket))

	region := markdownV2Escaper.Replace(label)
	bracket := markdownV2Escaper.Replace(pair.Bracket)
	return fmt.Sprintf("No updates for `%d hours` and `%d minutes` in %s %s on %s: [%s activity in %s](%s)",
		elapsedMinutes/60, elapsedMinutes%60,
		region, bracket, markdownV2Escaper.Replace(siteHost(site)),
		region, bracket, markdownV2LinkEscaper.Replace(link))
}

func siteHost(site string) string {
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return site
	}
	return u.Host
}
