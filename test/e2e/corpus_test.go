package e2e

import "testing"

func TestBuildCorpus_OneCasePerDocument(t *testing.T) {
	c := BuildCorpus()
	if len(c.Documents) == 0 {
		t.Fatal("corpus has no documents")
	}
	if len(c.Cases) != len(c.Documents) {
		t.Fatalf("cases = %d, documents = %d", len(c.Cases), len(c.Documents))
	}
	seen := make(map[string]bool)
	for _, d := range c.Documents {
		key := d.Category + "/" + d.Name
		if seen[key] {
			t.Errorf("duplicate document %s", key)
		}
		seen[key] = true
	}
}

func TestBuildCorpus_LexicalOrder(t *testing.T) {
	docs := BuildCorpus().Documents
	for i := 1; i < len(docs); i++ {
		prev, cur := docs[i-1], docs[i]
		if prev.Category > cur.Category || (prev.Category == cur.Category && prev.Name >= cur.Name) {
			t.Fatalf("documents out of order at %d: %s/%s before %s/%s",
				i, prev.Category, prev.Name, cur.Category, cur.Name)
		}
	}
}

func TestBuildCorpus_ExpectedDocsContainQueryPhrase(t *testing.T) {
	c := BuildCorpus()
	for _, tc := range c.Cases {
		doc, ok := c.Document(tc.Category, tc.Name)
		if !ok {
			t.Errorf("case %s: document not in corpus", tc.Description)
			continue
		}
		if !containsPhrase(doc, tc.Query) {
			t.Errorf("document %s does not contain query phrase %q", tc.Description, tc.Query)
		}
	}
}

func TestContainsPhrase(t *testing.T) {
	doc := Document{Content: "Redis keeps its dataset in memory."}
	tests := []struct {
		phrase string
		want   bool
	}{
		{"redis keeps", true},
		{"in memory", true},
		{"Kafka", false},
	}
	for _, tt := range tests {
		if got := containsPhrase(doc, tt.phrase); got != tt.want {
			t.Errorf("containsPhrase(%q) = %v, want %v", tt.phrase, got, tt.want)
		}
	}
}
