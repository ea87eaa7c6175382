package ldpupdate

import "testing"

func TestParseInsertData(t *testing.T) {
	delta, err := Parse(`INSERT DATA { <urn:s> <urn:p> <urn:o> . }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(delta.Add) != 1 || len(delta.Remove) != 0 {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestParseDeleteData(t *testing.T) {
	delta, err := Parse(`DELETE DATA { <urn:s> <urn:p> <urn:o> . }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(delta.Remove) != 1 || len(delta.Add) != 0 {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestParseDeleteInsertWhere(t *testing.T) {
	update := `DELETE { <urn:s> <urn:p> <urn:old> . }
INSERT { <urn:s> <urn:p> <urn:new> . }
WHERE { <urn:s> <urn:p> <urn:old> . }`
	delta, err := Parse(update)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(delta.Remove) != 1 || len(delta.Add) != 1 || len(delta.Where) != 1 {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestParseRejectsUnsupportedForm(t *testing.T) {
	if _, err := Parse(`SELECT * WHERE { ?s ?p ?o }`); err == nil {
		t.Fatal("expected an error for an unsupported update form")
	}
}

func TestParseEmptyInsertData(t *testing.T) {
	delta, err := Parse(`INSERT DATA { }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(delta.Add) != 0 {
		t.Fatalf("expected no triples, got %+v", delta.Add)
	}
}
