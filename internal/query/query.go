// Package query implementa el evaluador de dominios de búsqueda: listas
// ordenadas de condiciones (field, operator, value) combinadas con AND
// implícito, evaluadas contra registros en memoria.
package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Operator es el conjunto cerrado de operadores soportados.
// Construir una condición con un operador fuera del conjunto falla en
// construcción, no en evaluación.
type Operator string

const (
	OpEq   Operator = "="
	OpNe   Operator = "!="
	OpIn   Operator = "in"
	OpLike Operator = "like"
)

func (o Operator) valid() bool {
	switch o {
	case OpEq, OpNe, OpIn, OpLike:
		return true
	}
	return false
}

// Errores del evaluador.
var (
	// ErrUnknownField indica que una condición referencia un campo que el
	// registro no tiene. Es un error de configuración, no un no-match.
	ErrUnknownField = errors.New("query: unknown field")

	// ErrInvalidOperator indica un operador fuera del conjunto soportado.
	ErrInvalidOperator = errors.New("query: invalid operator")
)

// Condition es un filtro individual sobre un campo.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Domain es una secuencia de condiciones combinadas con AND.
// El dominio vacío matchea todo registro.
type Domain []Condition

// Eq construye una condición de igualdad.
func Eq(field string, value any) Condition { return Condition{Field: field, Op: OpEq, Value: value} }

// Ne construye una condición de desigualdad.
func Ne(field string, value any) Condition { return Condition{Field: field, Op: OpNe, Value: value} }

// In construye una condición de pertenencia; values es la secuencia admitida.
func In(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

// Like construye una condición de substring (case-insensitive).
func Like(field string, value string) Condition {
	return Condition{Field: field, Op: OpLike, Value: value}
}

// NewCondition valida el operador y construye la condición.
// Es la vía de entrada para dominios que llegan como triples crudos.
func NewCondition(field string, op string, value any) (Condition, error) {
	o := Operator(op)
	if !o.valid() {
		return Condition{}, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	return Condition{Field: field, Op: o, Value: value}, nil
}

// Triple es un filtro crudo (field, operator, value) tal como lo expresan
// las capas externas.
type Triple struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Parse convierte triples crudos en un Domain, validando cada operador.
func Parse(triples []Triple) (Domain, error) {
	domain := make(Domain, 0, len(triples))
	for _, t := range triples {
		c, err := NewCondition(t.Field, t.Operator, t.Value)
		if err != nil {
			return nil, err
		}
		domain = append(domain, c)
	}
	return domain, nil
}

// Match evalúa el dominio contra un registro (campo → valor escalar).
// Un campo ausente en el registro retorna ErrUnknownField.
func (d Domain) Match(record map[string]any) (bool, error) {
	for _, c := range d {
		ok, err := c.match(record)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c Condition) match(record map[string]any) (bool, error) {
	got, ok := record[c.Field]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
	}

	switch c.Op {
	case OpEq:
		return equal(got, c.Value), nil
	case OpNe:
		return !equal(got, c.Value), nil
	case OpIn:
		return contains(c.Value, got)
	case OpLike:
		want := strings.Trim(fmt.Sprint(c.Value), "%")
		return strings.Contains(
			strings.ToLower(fmt.Sprint(got)), strings.ToLower(want)), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidOperator, c.Op)
	}
}

// contains evalúa pertenencia de got en la secuencia value.
func contains(value any, got any) (bool, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false, fmt.Errorf("query: 'in' requires a sequence value, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if equal(got, rv.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

// equal compara valores escalares. Los números se comparan como float64
// para tolerar la mezcla int/float64 que produce encoding/json.
func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok2 := toFloat(b); ok2 {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
