package sequencing

import (
	"errors"
	"testing"
)

func TestEvalPrerequisitesBareIdentifiers(t *testing.T) {
	statuses := map[string]string{
		"S34": "completed",
		"S36": "passed",
		"S37": "incomplete",
	}
	cases := []struct {
		expr string
		want bool
	}{
		{"S34", true},
		{"S36", true},
		{"S37", false},
		{"S99", false}, // never tracked
		{"S34&S36", true},
		{"S34&S37", false},
		{"S34|S37", true},
		{"~S37", true},
		{"~S34", false},
		{"S37|(S34&S36)", true},
		{"~(S34&S36)", false},
	}
	for _, c := range cases {
		got, err := EvalPrerequisites(c.expr, statuses)
		if err != nil {
			t.Fatalf("%q: %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("%q = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalPrerequisitesComparisons(t *testing.T) {
	statuses := map[string]string{
		"S34": "failed",
		"S36": "passed",
	}
	cases := []struct {
		expr string
		want bool
	}{
		{"S34=failed", true},
		{"S34=f", true}, // single-letter alias
		{"S34=passed", false},
		{"S34<>passed", true},
		{"S36<>p", false},
		{`S36="passed"`, true},
		{"S99=passed", false}, // untracked identifier is false either way
		{"S99<>passed", false},
		{"S34=failed&S36=p", true},
	}
	for _, c := range cases {
		got, err := EvalPrerequisites(c.expr, statuses)
		if err != nil {
			t.Fatalf("%q: %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("%q = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalPrerequisitesSets(t *testing.T) {
	statuses := map[string]string{
		"S34": "completed",
		"S36": "passed",
		"S37": "incomplete",
	}
	cases := []struct {
		expr string
		want bool
	}{
		{"2*{S34,S36,S37}", true},
		{"3*{S34,S36,S37}", false},
		{"1*{S37}", false},
		{"2*{S34, S36, S37}", true}, // spaces inside the set
		{"2*{S34,S36}&~S37", true},
	}
	for _, c := range cases {
		got, err := EvalPrerequisites(c.expr, statuses)
		if err != nil {
			t.Fatalf("%q: %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("%q = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalPrerequisitesEntitiesAndPrecedence(t *testing.T) {
	statuses := map[string]string{"A": "completed", "B": "incomplete", "C": "completed"}

	// AND binds tighter than OR: A | B & B is A | (B & B).
	got, err := EvalPrerequisites("A|B&amp;B", statuses)
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Fatal("entity-escaped AND broke precedence")
	}
	got, err = EvalPrerequisites("(A|B)&C", statuses)
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Fatal("parenthesized OR failed")
	}
}

func TestEvalPrerequisitesMalformed(t *testing.T) {
	for _, expr := range []string{"", "(A", "A)", "A&", "&A", "A B)("} {
		if _, err := EvalPrerequisites(expr, map[string]string{"A": "completed"}); !errors.Is(err, ErrBadExpression) {
			t.Errorf("%q: want ErrBadExpression, got %v", expr, err)
		}
	}
}
