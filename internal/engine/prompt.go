package engine

// LLM prompt templates. Data only, no logic.

// CourseSystemPrompt frames every course content request.
const CourseSystemPrompt = "You are an educational content assistant that helps create concise course summaries and test questions from video transcripts."

// SummaryPrompt asks for a readable study summary.
// Args: transcript text.
const SummaryPrompt = `Create a comprehensive yet concise summary of the following video transcript.
The summary should be well-structured and easy to read, using short paragraphs and bullet points where they help.
Cover the key concepts, definitions, and takeaways a student needs to review the lesson.

Transcript:
%s`

// QuestionsPrompt asks for an exact, parseable multiple-choice format.
// Args: question count, transcript text.
const QuestionsPrompt = `Based on the following video transcript, create exactly %d multiple-choice questions that test comprehension of the material, not rote recall of exact wording.
Each question must have exactly 4 options labeled A, B, C and D, and exactly one correct option.

Use this format exactly for every question, with a blank line between questions:

1. Question text?
A) First option
B) Second option
C) Third option
D) Fourth option
Correct answer: B

Do not add explanations, headings, or any other text.

Transcript:
%s`
