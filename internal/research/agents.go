package research

import "github.com/nlpodyssey/openai-agents-go/agents"

// Role names one agent of the research desk.
type Role string

const (
	RolePlanner    Role = "TickerPlannerAgent"
	RoleNews       Role = "NewsAgent"
	RoleMarket     Role = "MarketAgent"
	RoleValuation  Role = "ValuationAgent"
	RoleComparison Role = "ComparisonAgent"
	RoleReport     Role = "ReportAgent"
)

// TickerPlan is the planner's structured output.
type TickerPlan struct {
	Tickers []string `json:"tickers" jsonschema_description:"Upper-case stock ticker symbols to research."`
	Period  string   `json:"period" jsonschema_description:"Analysis period such as 1mo or 1y."`
	Focus   string   `json:"focus" jsonschema_description:"What the user wants to learn about the tickers."`
}

// ModelFunc returns the model instance an agent should use. A nil model
// makes the agent fall back to the configured model name.
type ModelFunc func(Role) agents.Model

func (m *Manager) newAgent(role Role, instructions string) *agents.Agent {
	a := agents.New(string(role)).WithInstructions(instructions)
	if m.models != nil {
		if model := m.models(role); model != nil {
			return a.WithModelInstance(model)
		}
	}
	return a.WithModel(m.modelName)
}

func (m *Manager) plannerAgent() *agents.Agent {
	return m.newAgent(RolePlanner, PlannerPrompt).
		WithOutputType(agents.OutputType[TickerPlan]())
}

func (m *Manager) newsAgent() *agents.Agent {
	var tools []agents.Tool
	if m.webSearch {
		tools = append(tools, agents.WebSearchTool{})
	}
	tools = append(tools, m.toolkit.NewsTools()...)
	a := m.newAgent(RoleNews, NewsPrompt)
	if len(tools) > 0 {
		a = a.WithTools(tools...)
	}
	return a
}

func (m *Manager) marketAgent() *agents.Agent {
	return m.newAgent(RoleMarket, MarketPrompt).WithTools(m.toolkit.MarketTools()...)
}

func (m *Manager) valuationAgent() *agents.Agent {
	return m.newAgent(RoleValuation, ValuationPrompt).WithTools(m.toolkit.ValuationTools()...)
}

func (m *Manager) comparisonAgent() *agents.Agent {
	return m.newAgent(RoleComparison, ComparisonPrompt)
}

func (m *Manager) reportAgent() *agents.Agent {
	return m.newAgent(RoleReport, ReportPrompt)
}
