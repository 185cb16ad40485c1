package query

import (
	"errors"
	"testing"
)

func record() map[string]any {
	return map[string]any{
		"id":       "7",
		"username": "tebanep",
		"email":    "tebanep@gmail.com",
		"age":      34,
	}
}

func TestMatch_EmptyDomainMatchesEverything(t *testing.T) {
	ok, err := Domain{}.Match(record())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("empty domain should match any record")
	}

	ok, err = Domain{}.Match(map[string]any{})
	if err != nil || !ok {
		t.Fatalf("empty domain vs empty record: ok=%v err=%v", ok, err)
	}
}

func TestMatch_Eq(t *testing.T) {
	ok, err := Domain{Eq("username", "tebanep")}.Match(record())
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}

	ok, _ = Domain{Eq("username", "valenep")}.Match(record())
	if ok {
		t.Fatal("expected no match")
	}
}

func TestMatch_EqNumericAcrossJSONTypes(t *testing.T) {
	// encoding/json decodifica números como float64
	rec := map[string]any{"id": "7", "age": float64(34)}
	ok, err := Domain{Eq("age", 34)}.Match(rec)
	if err != nil || !ok {
		t.Fatalf("int vs float64 should be equal, ok=%v err=%v", ok, err)
	}
}

func TestMatch_Ne(t *testing.T) {
	ok, err := Domain{Ne("username", "valenep")}.Match(record())
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
}

func TestMatch_In(t *testing.T) {
	ok, err := Domain{In("id", "5", "6", "7")}.Match(record())
	if err != nil || !ok {
		t.Fatalf("expected membership match, ok=%v err=%v", ok, err)
	}

	ok, _ = Domain{In("id", "1", "2")}.Match(record())
	if ok {
		t.Fatal("expected no membership")
	}
}

func TestMatch_InWithStringSlice(t *testing.T) {
	cond := Condition{Field: "id", Op: OpIn, Value: []string{"7", "9"}}
	ok, err := Domain{cond}.Match(record())
	if err != nil || !ok {
		t.Fatalf("typed slice membership, ok=%v err=%v", ok, err)
	}
}

func TestMatch_InRejectsScalarValue(t *testing.T) {
	cond := Condition{Field: "id", Op: OpIn, Value: "7"}
	if _, err := (Domain{cond}).Match(record()); err == nil {
		t.Fatal("'in' with scalar value should fail")
	}
}

func TestMatch_Like(t *testing.T) {
	ok, err := Domain{Like("email", "%gmail%")}.Match(record())
	if err != nil || !ok {
		t.Fatalf("expected substring match, ok=%v err=%v", ok, err)
	}

	ok, _ = Domain{Like("email", "GMAIL")}.Match(record())
	if !ok {
		t.Fatal("like should be case-insensitive")
	}
}

func TestMatch_UnknownFieldIsError(t *testing.T) {
	_, err := Domain{Eq("missing", "x")}.Match(record())
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestMatch_ConditionsAreANDed(t *testing.T) {
	d := Domain{Eq("username", "tebanep"), Eq("id", "8")}
	ok, err := d.Match(record())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("one failing condition should fail the whole domain")
	}
}

func TestNewCondition_RejectsInvalidOperator(t *testing.T) {
	if _, err := NewCondition("id", ">=", 1); !errors.Is(err, ErrInvalidOperator) {
		t.Fatalf("expected ErrInvalidOperator, got %v", err)
	}
}

func TestParse(t *testing.T) {
	d, err := Parse([]Triple{
		{Field: "username", Operator: "=", Value: "tebanep"},
		{Field: "id", Operator: "in", Value: []any{"7"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := d.Match(record())
	if err != nil || !ok {
		t.Fatalf("parsed domain should match, ok=%v err=%v", ok, err)
	}

	if _, err := Parse([]Triple{{Field: "id", Operator: "between", Value: 1}}); err == nil {
		t.Fatal("invalid operator should fail at parse time")
	}
}
