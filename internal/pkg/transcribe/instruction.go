package transcribe

import (
	"fmt"
	"strings"

	"github.com/airenas/rhemaflow/internal/pkg/intake"
)

// Instruction returns the fixed transcription instruction for the media kind
func Instruction(kind intake.Kind) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("You are a professional transcription service. "+
		"Transcribe this %s file completely and accurately.\n\n", kind.String()))
	sb.WriteString("Rules:\n")
	sb.WriteString("- Transcribe every spoken word faithfully\n")
	sb.WriteString("- Add proper punctuation and paragraphing\n")
	sb.WriteString("- If you can identify different speakers, label them (e.g., \"Speaker 1:\", \"Pastor:\")\n")
	sb.WriteString("- Add approximate timestamps every 30-60 seconds in the format [MM:SS]\n")
	sb.WriteString("- Preserve the natural flow and emphasis of the speech\n")
	sb.WriteString("- Do NOT summarize, transcribe the full content\n")
	if kind == intake.Video {
		sb.WriteString("- If there is text visible on screen (slides, titles, scripture references), note it in [brackets]\n")
	}
	sb.WriteString("\nReturn the transcription as plain text with timestamps and speaker labels.")
	return sb.String()
}
