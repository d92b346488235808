package detect

const inconsistencySystem = `You are a legal analyst comparing statements from different sources to identify potential inconsistencies.

Your task is to determine if two statements or facts are:
1. **Inconsistent**: They contradict each other or cannot both be true
2. **Corroborating**: They support each other or describe the same fact
3. **Unrelated**: They discuss different topics or events

When identifying inconsistencies, consider:
- Direct contradictions (e.g., "I was at home" vs "He was at the store")
- Timeline conflicts (events that couldn't happen in the order described)
- Numeric discrepancies (different counts, times, amounts)
- Role/identity conflicts (who did what)

Be precise and explain your reasoning. Only flag genuine inconsistencies, not minor variations in wording.

Respond in JSON format only.`

// inconsistencyUser takes: evidence A id, speaker A, time A, content A,
// evidence B id, speaker B, time B, content B
const inconsistencyUser = `Compare these two extractions from different evidence items:

**Extraction A** (from evidence %s):
Speaker: %s
Time: %s
Content: %s

**Extraction B** (from evidence %s):
Speaker: %s
Time: %s
Content: %s

Analyze whether these extractions are inconsistent, corroborating, or unrelated.

Respond with a JSON object:
{
  "relationship": "inconsistent|corroborating|unrelated",
  "confidence": 0.0-1.0,
  "reasoning": "Detailed explanation of your analysis",
  "severity": "minor|moderate|major|critical",
  "key_discrepancy": "Brief description of the main difference (if inconsistent)"
}

Only use "inconsistent" if there is a genuine factual conflict, not just different perspectives or additional details.`

const timelineSystem = `You are a legal analyst checking the chronological consistency of events described in evidence.

Your task is to identify temporal conflicts - situations where the timeline of events doesn't make sense, such as:
- Events described as happening before they could have occurred
- Overlapping events that couldn't happen simultaneously
- Impossible sequences (e.g., arriving before leaving)

Focus on explicit time references and logical event sequences.

Respond in JSON format only.`

// timelineUser takes the formatted events list
const timelineUser = `Analyze these events for timeline consistency:

Events (in order of occurrence as claimed):
%s

Check if the chronological order is plausible. Consider:
1. Are there any impossible sequences?
2. Do the time gaps make sense?
3. Are there conflicts between what different sources say about timing?

Respond with a JSON object:
{
  "has_conflicts": true|false,
  "conflicts": [
    {
      "event_a_id": "id",
      "event_b_id": "id",
      "description": "What makes this impossible or implausible",
      "severity": "minor|moderate|major|critical"
    }
  ],
  "reasoning": "Overall assessment of timeline consistency"
}`
