package provider

import (
	"fmt"

	"shortsmith/config"
)

// Categories is the moment taxonomy the analysis may use.
var Categories = []string{"Funny", "Interesting", "Incredible Play", "Cinematic", "Other"}

// SystemPrompt is the fixed analysis instruction sent with every chunk.
var SystemPrompt = fmt.Sprintf(`You are a professional video editor assistant. Your task is to analyze the provided video chunk and identify the best moments suitable for YouTube Shorts.

Identify moments that fit these categories:
- Funny
- Interesting
- Incredible Play
- Cinematic
- Other

Constraints:
1. Duration: %d seconds to %d seconds.
2. Provide a brief description.
3. Use timestamp format "HH:MM:SS".
4. Include any memorable dialogue in the 'dialogue' field.

If no suitable moments are found, return an empty array in the moments field.`,
	int(config.MinMomentLength.Seconds()), int(config.MaxMomentLength.Seconds()))

// ChunkInstruction accompanies the uploaded chunk.
const ChunkInstruction = "Analyze this video chunk and identify the best moments for YouTube Shorts. " +
	"Return timestamps relative to the start of this provided video chunk (00:00:00)."

// InlinePrompt is used by backends without schema support. The answer is
// pulled out of free text.
var InlinePrompt = SystemPrompt + `

Output ONLY JSON in this format:
{"moments": [{"start_time": "00:00:10", "end_time": "00:00:25", "category": "Funny", "description": "The host makes a hilarious joke.", "dialogue": [{"start_time": "00:00:12", "end_time": "00:00:14", "phrase": "..."}]}]}`
