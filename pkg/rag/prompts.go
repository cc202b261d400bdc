package rag

import "fmt"

const qaInstruction = `You are an expert research assistant specializing in academic literature analysis. Use the retrieved context from research articles to answer the question.

Guidelines:
1. Base your answer strictly on the provided context
2. If the context doesn't contain enough information, clearly state what's missing
3. Cite specific findings, methodologies, or insights from the articles when relevant
4. Maintain academic rigor in your response
5. If multiple articles discuss the topic, synthesize the information and note any contradictions

Question: %s

Provide a comprehensive, well-structured answer based on the retrieved research.`

const synthesisInstruction = `You are tasked with synthesizing insights from multiple research articles. Analyze the provided content from %d research articles and provide a comprehensive synthesis.

%s

Provide a structured synthesis that includes:
1. **Common Themes**: What consistent patterns or themes emerge across the articles?
2. **Methodological Approaches**: What research methods were used and how do they compare?
3. **Key Findings**: What are the main findings and how do they relate to each other?
4. **Contradictions or Gaps**: Are there any conflicting findings or notable gaps?
5. **Implications**: What are the broader implications of these combined findings?
6. **Future Research Directions**: What areas need further investigation?`

const gapInstruction = `You are a senior research analyst tasked with identifying research gaps in %s.

Analyze the provided research content and identify:
1. **Underexplored Areas**: What topics or subtopics appear to be missing or underrepresented?
2. **Methodological Gaps**: Are there research methods that could be applied but haven't been used?
3. **Geographic/Temporal Gaps**: Are there regions, time periods, or contexts that lack coverage?
4. **Interdisciplinary Opportunities**: Where could interdisciplinary approaches add value?
5. **Practical Application Gaps**: What bridges between theory and practice are missing?

Based on this analysis, provide 5-7 specific, actionable research gap suggestions. For each gap, explain:
- What is missing
- Why it's important
- How it could be addressed`

func qaPrompt(question string) string {
	return fmt.Sprintf(qaInstruction, question)
}

func synthesisPrompt(numArticles int, focus string) string {
	focusLine := "Provide a general synthesis of the key insights."
	if focus != "" {
		focusLine = "Focus your synthesis specifically on: " + focus
	}
	return fmt.Sprintf(synthesisInstruction, numArticles, focusLine)
}

func gapPrompt(domain string) string {
	return fmt.Sprintf(gapInstruction, domain)
}
