package notes

import (
	"fmt"
	"strings"
)

const topicExtractionTemplate = `**CONTEXT:**
You are an AI assistant helping to create structured educational notes from a video transcript.
This is STEP 1 of a multi-step process where we first need to identify what topics are covered in the video.

**YOUR TASK:**
Analyze the transcript below and extract ALL main topics and their subtopics.
- Main topics are broad categories (e.g., "Spring Framework", "Database Design", "Multithreading")
- Subtopics are specific concepts under each main topic (e.g., under "Spring Framework": "Dependency Injection", "Bean Lifecycle", "Auto Configuration")

**IMPORTANT RULES:**
1. You MUST return ONLY valid JSON - no explanations, no markdown, no extra text
2. Use this EXACT format:
[
  {
    "mainTopic": "Main Topic Name",
    "subtopics": ["Subtopic 1", "Subtopic 2", "Subtopic 3"]
  }
]
3. Be comprehensive - capture ALL topics discussed
4. Keep topic names concise but clear
5. If only one main topic exists, still return it as an array with one element

**LANGUAGE:** %s

**TRANSCRIPT TO ANALYZE:**
%s

**NOW RETURN ONLY THE JSON ARRAY (no other text):**`

const contentGenerationTemplate = `**CONTEXT:**
You are an AI assistant creating detailed educational notes from a video transcript.
This is STEP 2 of our process. In STEP 1, we identified topics. Now we need detailed content for ONE specific topic.

**WHAT HAPPENED SO FAR:**
- We analyzed a video transcript
- We identified this main topic: "%s"
- Under this topic, we found these subtopics: %s

**YOUR TASK:**
Create comprehensive, detailed educational content for ONLY this topic and its subtopics based on the transcript.

**IMPORTANT RULES:**
1. You MUST return ONLY valid JSON - no explanations, no markdown, no extra text
2. For each subtopic, provide:
   - A brief description (1-2 sentences overview)
   - Detailed content (as much as needed - NO length limit)
   - Where diagrams/images would help understanding
   - Where tables would organize information better

3. Use this EXACT JSON format:
{
  "title": "Main Topic Name",
  "subtopics": [
    {
      "title": "Subtopic Name",
      "description": "Brief 1-2 sentence overview",
      "content": "Detailed explanation with examples. When you think an image would help, write [IMAGE: description of what image should show]. When a table would help, write [TABLE: table_title | header1,header2,header3 | row1col1,row1col2,row1col3]. Continue with more content.",
      "imagePositions": [
        {
          "position": 1,
          "description": "Detailed description of what this image should illustrate"
        }
      ],
      "tablePositions": [
        {
          "position": 1,
          "title": "Table Title",
          "headers": ["Header 1", "Header 2", "Header 3"],
          "rows": [
            ["Row 1 Col 1", "Row 1 Col 2", "Row 1 Col 3"],
            ["Row 2 Col 1", "Row 2 Col 2", "Row 2 Col 3"]
          ]
        }
      ]
    }
  ]
}

**GUIDELINES FOR CONTENT:**
- Make explanations clear and easy to understand
- Include practical examples from the transcript
- Suggest images for: processes, flows, architectures, diagrams, comparisons
- Suggest tables for: comparisons, lists of options, configuration values, pros/cons
- Write in %s language
- Be thorough - there is NO length limit

**FULL TRANSCRIPT FOR CONTEXT:**
%s

**NOW RETURN ONLY THE JSON OBJECT (no other text before or after):**`

const simpleNotesTemplate = `**CONTEXT:**
You are creating educational notes from a video transcript.
Due to an error in structured processing, we need a simple text-based summary.

**YOUR TASK:**
Generate comprehensive, well-structured notes as plain text (not JSON).

**GUIDELINES:**
- Create clear section headings using ## for main topics
- Use bullet points for key information
- Include code examples if relevant
- Highlight important concepts
- Make it easy to study from
- Write in %s language

**TRANSCRIPT:**
%s

**GENERATE NOTES NOW:**`

// TopicExtractionPrompt asks the backend to decompose a transcript into an
// ordered array of (mainTopic, subtopics) pairs.
func TopicExtractionPrompt(transcript, language string) string {
	return fmt.Sprintf(topicExtractionTemplate, defaultLanguage(language), transcript)
}

// ContentGenerationPrompt asks the backend for detailed content covering one
// extracted topic and its subtopics.
func ContentGenerationPrompt(topic TopicStructure, transcript, language string) string {
	subtopics := "[" + strings.Join(topic.Subtopics, ", ") + "]"
	return fmt.Sprintf(contentGenerationTemplate, topic.MainTopic, subtopics, defaultLanguage(language), transcript)
}

// SimpleNotesPrompt asks for unstructured plain-text notes; used by the
// second fallback tier when structured generation failed.
func SimpleNotesPrompt(transcript, language string) string {
	return fmt.Sprintf(simpleNotesTemplate, defaultLanguage(language), transcript)
}

func defaultLanguage(language string) string {
	if strings.TrimSpace(language) == "" {
		return "English"
	}
	return language
}
