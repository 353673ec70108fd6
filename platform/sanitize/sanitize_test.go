package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "comprovante de residência", want: "comprovante de residência"},
		{name: "tags", in: "<b>urgente</b> <script>alert(1)</script>visita", want: "urgente alert(1)visita"},
		{name: "encoded tags", in: "&lt;img src=x onerror=alert(1)&gt;laudo", want: "laudo"},
		{name: "whitespace", in: "  parecer\t\tfavorável   ao   pedido ", want: "parecer favorável ao pedido"},
		{name: "line breaks", in: "linha 1\r\n\r\n\r\n\r\nlinha 2", want: "linha 1\n\nlinha 2"},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestStrings(t *testing.T) {
	assert.Nil(t, Strings(nil))
	assert.Equal(t, []string{"laudo.pdf", "rg.png"}, Strings([]string{" laudo.pdf ", "<i></i>", "rg.png"}))
}
