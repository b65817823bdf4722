package usage

import "github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/model"

// Request estimates the prompt tokens of a parsed request: all turn
// content plus the system instruction and tool declarations.
func (e Estimator) Request(req *model.Request) int {
	total := e.Text(req.System)
	for _, turn := range req.Turns {
		total += e.TurnOverhead()
		for _, p := range turn.Parts {
			switch p.Kind {
			case model.KindText:
				total += e.Text(p.Text)
			case model.KindBinary:
				total += e.Binary()
			case model.KindToolInvocation:
				total += e.Text(p.Invocation.Name)
				total += e.Text(string(p.Invocation.Args))
			case model.KindToolResult:
				total += e.Text(p.Result.Name)
				total += e.Text(string(p.Result.Response))
			}
		}
	}
	for _, d := range req.Tools {
		total += e.Text(d.Name)
		total += e.Text(d.Description)
		total += e.Text(string(d.Parameters))
	}
	return total
}
