package parser

import (
	"regexp"
	"strings"
)

// orgSuffixes 常见的组织名称后缀，用于识别公司和院校
var orgSuffixes = []string{
	"Inc", "Inc.", "LLC", "Ltd", "Ltd.", "Limited", "Corp", "Corp.", "Corporation",
	"Company", "Co", "Co.", "GmbH", "AG", "Group", "Holdings", "Technologies",
	"Labs", "Solutions", "Systems", "Software", "Consulting",
	"University", "College", "Institute", "School", "Academy",
}

// orgPattern 匹配以大写字母开头的连续词组，后跟组织后缀
// 例如 "Acme Technologies Inc" 或 "Stanford University"
var orgPattern = regexp.MustCompile(
	`\b([A-Z][A-Za-z&.'-]*(?:\s+(?:of|the|and|for|[A-Z][A-Za-z&.'-]*)){0,5}\s+(?:` +
		strings.Join(escapeAll(orgSuffixes), "|") + `))(?:\b|\.)`)

// atPattern 匹配 "at XXX" / "@ XXX" 形式的任职表述
var atPattern = regexp.MustCompile(
	`(?:\bat|@)\s+([A-Z][A-Za-z&.'-]*(?:\s+[A-Z][A-Za-z&.'-]*){0,4})`)

func escapeAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = regexp.QuoteMeta(s)
	}
	return out
}

// ExtractOrganizations 用启发式规则从简历文本中识别组织名称
// 结果去重并保持首次出现的顺序
func ExtractOrganizations(text string) []string {
	seen := make(map[string]bool)
	var orgs []string

	add := func(name string) {
		name = strings.TrimSpace(strings.Trim(name, ".,;:"))
		if name == "" || len([]rune(name)) < 3 {
			return
		}
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		orgs = append(orgs, name)
	}

	for _, m := range orgPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range atPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	return orgs
}
