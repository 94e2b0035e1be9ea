package engine

// LLM prompt templates, data only.
// Variables use {{name}} placeholders, filled by the prompt executor.

// companyResearchPrompt produces a structured company overview for a job seeker.
const companyResearchPrompt = `You are a company research analyst helping a job applicant prepare.

Company: {{company}}

Job description:
{{job_description}}

{{search_context}}

Return a JSON object with this exact structure:
{
  "name": "<official company name>",
  "overview": "<3-4 sentence company overview for a job seeker>",
  "culture_notes": "<2-3 sentences about work culture, values, remote policy>",
  "key_facts": [<up to 5 notable facts: size, funding, products, recent news>],
  "tech_stack": [<technologies the company uses, if known>]
}

Return ONLY the JSON object, no markdown, no explanation.`

// peopleResearchPrompt profiles the people the applicant may interview with.
const peopleResearchPrompt = `You are a research assistant profiling people at a company for an upcoming job application.

Company: {{company}}
People URLs: {{person_urls}}

Company context (from a prior analysis stage):
{{company_context}}

{{search_context}}

Return a JSON object with this exact structure:
{
  "people": [
    {
      "name": "<full name>",
      "role": "<current role at the company>",
      "summary": "<one sentence: background and what to mention when talking to them>"
    }
  ]
}

Return ONLY the JSON object, no markdown, no explanation.`

// matchScorePrompt scores resume-to-JD fit, anchored on the local keyword score.
const matchScorePrompt = `You are a career advisor scoring how well a candidate fits a job.

RESUME:
{{resume}}

JOB DESCRIPTION:
{{job_description}}

LOCAL KEYWORD SCORE: {{preliminary_score}}

Company context (from a prior analysis stage):
{{company_context}}

People context (from a prior analysis stage):
{{people_context}}

Return a JSON object with this exact structure:
{
  "score": <fit score 0-100, anchored on but not limited to the keyword score>,
  "highlights": [<up to 5 strongest matches between resume and JD>],
  "gaps": [<up to 5 most important gaps>],
  "summary": "<2-3 sentence fit assessment>"
}

Return ONLY the JSON object, no markdown, no explanation.`

// skillGapPrompt turns match gaps into a prioritized learning plan.
const skillGapPrompt = `You are a career advisor analyzing skill gaps between a candidate and a job.

RESUME:
{{resume}}

JOB DESCRIPTION:
{{job_description}}

Match context (from a prior analysis stage):
{{match_context}}

For each missing skill, categorize it (language|framework|devops|soft_skill|domain),
prioritize it (critical|high|medium), estimate realistic learning time, and suggest
how to learn or demonstrate it.

Return a JSON object with this exact structure:
{
  "missing_skills": [
    {
      "skill": "<skill name>",
      "category": "<language|framework|devops|soft_skill|domain>",
      "priority": "<critical|high|medium>",
      "learning_time": "<estimated time, e.g. '2-4 weeks'>",
      "suggestion": "<how to learn or demonstrate this skill>"
    }
  ],
  "learning_plan": "<prioritized learning roadmap, 2-4 sentences>",
  "summary": "<overall fit assessment and key gaps, 2-3 sentences>"
}

Return ONLY the JSON object, no markdown, no explanation.`
