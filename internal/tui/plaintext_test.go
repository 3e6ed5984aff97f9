package tui

import "testing"

func TestPlainTextStripsAnchors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "linkified url",
			in:   `Ingresa a <a href="https://www.sunat.gob.pe/sol.html" target="_blank" rel="noopener noreferrer">https://www.sunat.gob.pe/sol.html</a> hoy`,
			want: "Ingresa a https://www.sunat.gob.pe/sol.html hoy",
		},
		{
			name: "labelled anchor",
			in:   `<a href="https://www.gob.pe/7550-recuperar-la-clave-sol">Recuperar</a>`,
			want: "Recuperar (https://www.gob.pe/7550-recuperar-la-clave-sol)",
		},
		{
			name: "entities",
			in:   `RUC &amp; Clave SOL`,
			want: "RUC & Clave SOL",
		},
		{
			name: "plain text",
			in:   "**Consulta de RUC**\n1. Paso",
			want: "**Consulta de RUC**\n1. Paso",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.in); got != tc.want {
				t.Fatalf("PlainText() = %q, want %q", got, tc.want)
			}
		})
	}
}
