package productmap

import "testing"

func TestFold(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Plazo Fijo 90 Días ", "plazo fijo 90 dias"},
		{"Inversión Flexible", "inversion flexible"},
		{"  CUENTA Platino  ", "cuenta platino"},
		{"café", "cafe"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Fold(c.in); got != c.want {
			t.Fatalf("Fold(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLookup_FirstMatchWins(t *testing.T) {
	t.Parallel()

	table := Table{
		Rules: []Rule{
			{Contains: []string{"cuenta", "platino"}, ProductID: 2},
			{Contains: []string{"cuenta"}, ProductID: 1},
		},
		Default: 99,
	}

	tests := []struct {
		name string
		in   string
		want int32
	}{
		{"tiered rule shadows bare rule", "Cuenta Platino Plus", 2},
		{"bare rule", "Cuenta normal", 1},
		{"accented name folds before matching", "CUENTA PLATÍNO", 2},
		{"no rule falls to default", "Tarjeta de crédito", 99},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := table.Lookup(tc.in); got != tc.want {
				t.Fatalf("Lookup(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestLookup_AllSubstringsRequired(t *testing.T) {
	t.Parallel()

	table := Table{
		Rules:   []Rule{{Contains: []string{"flexible", "platino"}, ProductID: 4}},
		Default: 3,
	}
	if got := table.Lookup("Inversión Flexible"); got != 3 {
		t.Fatalf("Lookup = %d, want default 3 when only one substring matches", got)
	}
	if got := table.Lookup("Inversión Flexible Platino"); got != 4 {
		t.Fatalf("Lookup = %d, want 4 when every substring matches", got)
	}
}
