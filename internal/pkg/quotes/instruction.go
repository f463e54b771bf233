package quotes

import "fmt"

// Instruction builds the quote extraction instruction with the transcript embedded
func Instruction(transcript string) string {
	return fmt.Sprintf(`You are an expert at identifying powerful, meaningful, and shareable quotes from sermons and teachings.

Analyze this transcript and extract the most impactful quotes:

"""
%s
"""

Rules:
- Extract 5-15 of the most powerful, memorable, and shareable quotes
- Each quote should be a complete thought that stands on its own
- Include the approximate timestamp if available
- Categorize each quote with relevant themes (e.g., faith, hope, love, prayer, perseverance)
- Rate each quote's impact from 1-5 (5 = most powerful)

Return ONLY valid JSON in this exact format (no markdown, no code fences):
[
  {
    "text": "The exact quote text",
    "timestamp": "MM:SS",
    "speaker": "Speaker name if known",
    "themes": ["theme1", "theme2"],
    "impact": 4
  }
]`, transcript)
}
