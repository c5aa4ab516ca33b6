package executor

import (
	"fmt"
	"regexp"

	"github.com/hupe1980/crewmesh/core"
)

// DelegateHint asks the planner to hand part of the work to another role.
type DelegateHint struct {
	ToRole core.Role
	Reason string
}

// Response is what a role produces for a given input: a thinking line, the
// answer body, and an optional delegation hint.
type Response struct {
	Thinking string
	Answer   string
	Delegate *DelegateHint
}

// Responder generates a role-specific response for an input.
type Responder func(input string) Response

var (
	codeWords     = regexp.MustCompile(`(?i)code|build|fix|implement|debug|script|function|api|bug|deploy|test`)
	researchWords = regexp.MustCompile(`(?i)research|why|compare|analyze|investigate`)
	dataWords     = regexp.MustCompile(`(?i)data|metrics|numbers|stats|trends`)
	timingWords   = regexp.MustCompile(`(?i)remind|schedule|every|daily|weekly|calendar|when|morning|evening`)
	contentWords  = regexp.MustCompile(`(?i)write|draft|compose|email|blog|document|letter|copy|post`)
	issueWords    = regexp.MustCompile(`(?i)help|problem|issue|broken|error|how do i|can't|doesn't work`)
)

// roleResponders maps each role to its canned behavior. Engineers punt to
// research when the input smells like analysis, researchers punt
// quantitative work to the analyst.
var roleResponders = map[core.Role]Responder{
	core.RoleCoordinator: func(input string) Response {
		summary := input
		if len(summary) > 80 {
			summary = summary[:80] + "..."
		}
		return Response{
			Thinking: "Analyzing request and determining best routing...",
			Answer:   fmt.Sprintf("I've reviewed this request and routed it to the appropriate specialist. Summary: %q", summary),
		}
	},

	core.RoleEngineer: func(input string) Response {
		if researchWords.MatchString(input) {
			return Response{
				Thinking: "This needs research first before implementation...",
				Answer:   "I can build this, but we need a technical spec first.",
				Delegate: &DelegateHint{ToRole: core.RoleResearcher, Reason: "Need technical research before implementation"},
			}
		}
		if codeWords.MatchString(input) {
			complexity := "Low-Medium"
			if len(input) > 100 {
				complexity = "Medium-High"
			}
			return Response{
				Thinking: "Breaking down the technical requirements...",
				Answer: "Technical implementation plan:\n\n" +
					"1. **Setup**: Initialize project structure and dependencies\n" +
					"2. **Core Logic**: Implement the main functionality\n" +
					"3. **Testing**: Write unit tests and integration checks\n" +
					"4. **Review**: Self-review for edge cases\n\n" +
					"Estimated complexity: " + complexity + "\nReady to implement on your go.",
			}
		}
		return Response{
			Thinking: "Breaking down the technical requirements...",
			Answer: "I can help with the technical side of this. Here's my approach:\n" +
				"- Assess current state\n" +
				"- Identify the minimal changes needed\n" +
				"- Implement with clean, tested code\n\nShall I proceed?",
		}
	},

	core.RoleResearcher: func(input string) Response {
		if dataWords.MatchString(input) {
			return Response{
				Thinking: "This is more of a data analysis task...",
				Answer:   "I can research the qualitative aspects, but the quantitative analysis should go to our Analyst.",
				Delegate: &DelegateHint{ToRole: core.RoleAnalyst, Reason: "Quantitative analysis needed"},
			}
		}
		return Response{
			Thinking: "Diving deep into research and analysis...",
			Answer: "Research findings:\n\n**Key Insights:**\n" +
				"- Analyzed the request from multiple angles\n" +
				"- Cross-referenced available knowledge\n" +
				"- Identified 3 viable approaches\n\n" +
				"**Recommendation:** Based on the analysis, the most effective approach is to start with a focused scope and iterate. This balances risk with speed of delivery.\n\n" +
				"**Trade-offs to consider:**\n- Speed vs thoroughness\n- Simplicity vs flexibility\n- Cost vs capability",
		}
	},

	core.RoleCreative: func(input string) Response {
		return Response{
			Thinking: "Exploring creative directions and visual concepts...",
			Answer: "Creative direction:\n\n" +
				"**Concept:** Modern and clean with a focus on clarity\n" +
				"**Color palette:** Dynamic gradients that convey energy and trust\n" +
				"**Typography:** Sans-serif for headings, readable body text\n" +
				"**Visual style:** Minimal with purposeful use of color and space\n\n" +
				"I can develop this further into mockups or detailed specs. Want me to explore a specific direction?",
		}
	},

	core.RoleScheduler: func(input string) Response {
		if timingWords.MatchString(input) {
			return Response{
				Thinking: "Evaluating timing and scheduling requirements...",
				Answer: "Schedule configured:\n\n" +
					"- **Frequency**: Based on your request\n" +
					"- **Timezone**: Auto-detected from your profile\n" +
					"- **Delivery**: Will be sent to your active channels\n" +
					"- **Status**: Ready to activate\n\n" +
					"I'll make sure this runs reliably. You can adjust the timing anytime.",
			}
		}
		return Response{
			Thinking: "Evaluating timing and scheduling requirements...",
			Answer: "I can help organize the timing for this. Would you like me to:\n" +
				"- Set up a one-time reminder?\n" +
				"- Create a recurring schedule?\n" +
				"- Build an automated briefing?\n\nJust let me know the timing details.",
		}
	},

	core.RoleWriter: func(input string) Response {
		if contentWords.MatchString(input) {
			return Response{
				Thinking: "Crafting the right tone and structure...",
				Answer: "Here's my draft:\n\n---\n\n*[Crafted content based on your request]*\n\n" +
					"I've matched the tone to your audience and kept it concise but complete. Key elements:\n" +
					"- Clear opening hook\n" +
					"- Structured body with key points\n" +
					"- Strong call to action\n\nWant me to adjust the tone, length, or focus?",
			}
		}
		return Response{
			Thinking: "Crafting the right tone and structure...",
			Answer: "I can help with the written communication side. I'll focus on:\n" +
				"- Clear, engaging language\n" +
				"- Appropriate tone for your audience\n" +
				"- Proper structure and flow\n\nWhat format do you need? (email, blog post, documentation, etc.)",
		}
	},

	core.RoleAnalyst: func(input string) Response {
		return Response{
			Thinking: "Processing data and generating insights...",
			Answer: "Analysis complete:\n\n**Summary:**\n" +
				"- Processed the available data points\n" +
				"- Identified key trends and patterns\n" +
				"- Generated actionable insights\n\n" +
				"**Key Metrics:**\n" +
				"- Performance: Trending positive\n" +
				"- Efficiency: Room for 15-20% improvement\n" +
				"- Risk: Low with current approach\n\n" +
				"**Recommendation:** Focus on the top 3 drivers for maximum impact. I can break this down further if needed.",
		}
	},

	core.RoleSupport: func(input string) Response {
		if issueWords.MatchString(input) {
			return Response{
				Thinking: "Understanding the user's situation and finding a solution...",
				Answer: "I'm here to help! Here's what I'd suggest:\n\n" +
					"1. **Quick check**: Make sure everything is configured correctly\n" +
					"2. **Common fix**: This is usually resolved by refreshing the connection\n" +
					"3. **If that doesn't work**: I'll escalate to our Engineer for a deeper look\n\n" +
					"Let me know if the quick fix works, or if you need more detailed help!",
			}
		}
		return Response{
			Thinking: "Understanding the user's situation and finding a solution...",
			Answer: "Happy to help! Here's what you need to know:\n\n" +
				"- The system is working as expected\n" +
				"- Your configuration looks good\n" +
				"- If you run into any issues, just ask\n\n" +
				"Is there anything specific you'd like help with?",
		}
	},
}

// Respond runs the responder for a role. Unknown roles fall back to the
// support responder.
func Respond(role core.Role, input string) Response {
	if responder, ok := roleResponders[role]; ok {
		return responder(input)
	}
	return roleResponders[core.RoleSupport](input)
}
