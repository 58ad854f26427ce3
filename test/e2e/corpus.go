// Package e2e provides end-to-end tests that build a store from a corpus on disk and
// check retrieval and feedback against it.
package e2e

import (
	"fmt"
	"sort"
	"strings"
)

// Document is one corpus file: a category directory, a file stem and its text.
type Document struct {
	Category string
	Name     string
	Content  string
}

// Source returns the document path relative to its category directory for the given extension.
func (d Document) Source(ext string) string {
	return d.Name + ext
}

// QueryCase is a query whose results must include the named document.
type QueryCase struct {
	Query       string
	Category    string
	Name        string
	Description string
}

// Corpus holds documents and query cases for the e2e tests.
type Corpus struct {
	Documents []Document
	Cases     []QueryCase
}

type topic struct {
	name    string
	phrase  string
	content string
}

var topics = map[string][]topic{
	"operations": {
		{"kubernetes", "Kubernetes pod scheduling", "Kubernetes runs containers across a cluster. Kubernetes pod scheduling places workloads on nodes with free capacity."},
		{"terraform", "Terraform state file", "Terraform plans changes before applying them. The Terraform state file records which resources already exist."},
		{"prometheus", "Prometheus alerting rules", "Prometheus scrapes targets on an interval. Prometheus alerting rules fire when a query crosses a threshold."},
		{"nginx", "Nginx upstream block", "Nginx fronts application servers. An Nginx upstream block lists backends for load balancing."},
		{"canary", "canary rollout percentage", "A canary release sends a slice of traffic to the new build. The canary rollout percentage grows while error rates stay flat."},
		{"oncall", "on-call pager escalation", "Someone is always reachable during an outage. On-call pager escalation wakes the secondary after fifteen minutes."},
		{"backups", "nightly backup retention", "Snapshots are copied to another region. Nightly backup retention keeps thirty days of restore points."},
		{"shutdown", "graceful shutdown drain", "Servers stop accepting connections on SIGTERM. Graceful shutdown drain waits for in-flight requests."},
		{"tracing", "distributed tracing spans", "Traces follow one request through many services. Distributed tracing spans show where latency accumulates."},
		{"autoscaling", "horizontal pod autoscaler", "Replica counts follow demand. The horizontal pod autoscaler reads CPU utilisation to add replicas."},
	},
	"data": {
		{"postgres", "PostgreSQL vacuum", "PostgreSQL keeps old row versions for concurrent readers. PostgreSQL vacuum reclaims space from dead tuples."},
		{"redis", "Redis eviction policy", "Redis keeps its dataset in memory. The Redis eviction policy decides which keys go when memory runs out."},
		{"kafka", "Kafka consumer group", "Kafka partitions a topic for throughput. A Kafka consumer group shares partitions among its members."},
		{"sqlite", "SQLite write-ahead log", "SQLite stores a database in one file. The SQLite write-ahead log lets readers continue during a write."},
		{"parquet", "Parquet columnar format", "Analytics engines prefer column storage. The Parquet columnar format compresses similar values together."},
		{"indexing", "composite index order", "Indexes speed up lookups on large tables. Composite index order must match the leading query columns."},
		{"migrations", "schema migration rollback", "Schemas change with every release. A schema migration rollback restores the previous table layout."},
		{"embeddings", "sentence embedding vectors", "Text is mapped into a dense space. Sentence embedding vectors place similar passages close together."},
		{"chunking", "chunk overlap window", "Long documents are split before embedding. The chunk overlap window repeats words across neighbouring chunks."},
		{"retrieval", "dense retrieval recall", "Queries are embedded and compared against stored passages. Dense retrieval recall depends on embedding quality."},
	},
	"security": {
		{"oauth", "OAuth refresh token", "OAuth delegates access without sharing passwords. An OAuth refresh token obtains new access tokens silently."},
		{"tls", "TLS certificate rotation", "Encrypted traffic depends on valid certificates. TLS certificate rotation replaces them before they expire."},
		{"passwords", "bcrypt password hashing", "Stored credentials must resist offline attacks. Bcrypt password hashing adds a salt and a work factor."},
		{"rbac", "role-based access control", "Permissions attach to roles rather than people. Role-based access control simplifies audits."},
		{"secrets", "Vault secret lease", "Credentials should not live in source code. A Vault secret lease expires and forces renewal."},
		{"scanning", "container image scanning", "Images ship with many packages. Container image scanning reports known vulnerabilities before deploy."},
		{"ratelimits", "token bucket rate limiter", "Public endpoints need protection from floods. A token bucket rate limiter refills at a steady pace."},
		{"audit", "tamper-evident audit trail", "Regulated systems record every change. A tamper-evident audit trail chains entries with hashes."},
	},
	"practice": {
		{"review", "code review checklist", "Every change gets a second reader. The code review checklist covers tests naming and error handling."},
		{"postmortem", "blameless postmortem", "Incidents are studied after recovery. A blameless postmortem looks at systems rather than individuals."},
		{"testing", "table-driven tests", "Go tests often enumerate cases in a slice. Table-driven tests keep inputs and expectations side by side."},
		{"fuzzing", "fuzz corpus seeds", "Fuzzers mutate inputs to find crashes. Fuzz corpus seeds give the mutator realistic starting points."},
		{"flags", "feature flag cleanup", "Flags let unfinished work ship dark. Feature flag cleanup removes toggles once a launch completes."},
		{"profiling", "CPU flame graph", "Profilers sample running programs. A CPU flame graph shows which call stacks consume time."},
		{"docs", "architecture decision record", "Teams forget why choices were made. An architecture decision record captures context and consequences."},
		{"onboarding", "onboarding buddy program", "New engineers need a guide. The onboarding buddy program pairs them with a teammate for a month."},
	},
}

// BuildCorpus returns the e2e corpus with one query case per document. Categories and
// documents are in lexical order.
func BuildCorpus() *Corpus {
	categories := make([]string, 0, len(topics))
	for c := range topics {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	c := &Corpus{}
	for _, category := range categories {
		list := append([]topic(nil), topics[category]...)
		sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })
		for _, t := range list {
			c.Documents = append(c.Documents, Document{Category: category, Name: t.name, Content: t.content})
			c.Cases = append(c.Cases, QueryCase{
				Query:       t.phrase,
				Category:    category,
				Name:        t.name,
				Description: fmt.Sprintf("%s/%s", category, t.name),
			})
		}
	}
	return c
}

// Document returns the document with the given category and name.
func (c *Corpus) Document(category, name string) (Document, bool) {
	for _, d := range c.Documents {
		if d.Category == category && d.Name == name {
			return d, true
		}
	}
	return Document{}, false
}

func containsPhrase(d Document, phrase string) bool {
	return strings.Contains(strings.ToLower(d.Content), strings.ToLower(phrase))
}
