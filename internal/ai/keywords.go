package ai

import "regexp"

type keywordRule struct {
	name    string
	pattern *regexp.Regexp
}

func rule(name, pattern string) keywordRule {
	return keywordRule{name: name, pattern: regexp.MustCompile(`(?i)` + pattern)}
}

// atsKeywordRules is the fixed list of skills matched against job descriptions
var atsKeywordRules = []keywordRule{
	rule("Go", `\b(golang|go\s+(developer|engineer|experience|programming))\b|\bgo\b[,/]`),
	rule("Python", `\bpython\b`),
	rule("Java", `\bjava\b`),
	rule("JavaScript", `\bjavascript\b|\bjs\b`),
	rule("TypeScript", `\btypescript\b`),
	rule("Rust", `\brust\b`),
	rule("C++", `\bc\+\+`),
	rule("SQL", `\bsql\b`),
	rule("PostgreSQL", `\bpostgres(ql)?\b`),
	rule("MySQL", `\bmysql\b`),
	rule("MongoDB", `\bmongo(db)?\b`),
	rule("Redis", `\bredis\b`),
	rule("Kafka", `\bkafka\b`),
	rule("Kubernetes", `\bkubernetes\b|\bk8s\b`),
	rule("Docker", `\bdocker\b`),
	rule("Terraform", `\bterraform\b`),
	rule("AWS", `\baws\b|amazon web services`),
	rule("GCP", `\bgcp\b|google cloud`),
	rule("Azure", `\bazure\b`),
	rule("CI/CD", `\bci\s*/\s*cd\b`),
	rule("Microservices", `\bmicro-?services?\b`),
	rule("REST", `\brest(ful)?\b`),
	rule("gRPC", `\bgrpc\b`),
	rule("GraphQL", `\bgraphql\b`),
	rule("React", `\breact(\.js)?\b`),
	rule("Node.js", `\bnode(\.js)?\b`),
	rule("Linux", `\blinux\b`),
	rule("Machine Learning", `\bmachine learning\b|\bml\b`),
	rule("Distributed Systems", `\bdistributed systems?\b`),
	rule("Agile", `\bagile\b|\bscrum\b`),
}

// ExtractKeywords returns the known ATS keywords mentioned in a job
// description, in the order of the fixed keyword list.
func ExtractKeywords(jobDescription string) []string {
	var found []string
	for _, r := range atsKeywordRules {
		if r.pattern.MatchString(jobDescription) {
			found = append(found, r.name)
		}
	}
	return found
}
