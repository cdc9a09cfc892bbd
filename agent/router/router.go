package router

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

const (
	DefaultCompletionThreshold = 50

	maxGreetingTokens = 3
	maxAckTokens      = 4
)

const (
	ReasonGreeting = "greeting"
	ReasonAck      = "acknowledgement"
	ReasonHint     = "sticky_hint"
	ReasonKeyword  = "keyword"
	ReasonFallback = "fallback"
)

var (
	greetingPattern = regexp.MustCompile(`^(hola+|holi|ola|hey|buenas|buen dia|buenos dias|buenas tardes|buenas noches|que tal|que onda|saludos|hi|hello)\b`)
	ackPattern      = regexp.MustCompile(`^(gracias|muchas gracias|mil gracias|ok|okay|oki|vale|perfecto|listo|genial|entendido|dale|super|de acuerdo|thanks|thank you)\b`)
)

type agentPatterns struct {
	agent    contractx.AgentType
	patterns []*regexp.Regexp
}

// Source order is routing precedence; the first agent with a matching pattern wins.
func buildKeywordPatterns() []agentPatterns {
	return []agentPatterns{
		{
			agent: contractx.AgentTypeOnboarding,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(me llamo|mi nombre|mi correo|mi email|mi mail|mi telefono|mi celular|mi numero)\b`),
				regexp.MustCompile(`\b(mi perfil|registrarme|registro|actualizar (mis )?datos|mis datos)\b`),
			},
		},
		{
			agent: contractx.AgentTypeGoals,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(metas?|objetivos?|proposito)\b`),
				regexp.MustCompile(`\b(ahorrar|ahorro|juntar dinero|fondo de emergencia|retiro|jubilacion)\b`),
				regexp.MustCompile(`\b(pagar (mi|mis|la|las) deudas?|salir de deudas?)\b`),
			},
		},
		{
			agent: contractx.AgentTypeBusiness,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(negocio|emprendimiento|emprender|empresa|startup|pyme)\b`),
				regexp.MustCompile(`\b(clientes?|ventas?|vender|margen|inventario|proveedor(es)?|facturacion)\b`),
			},
		},
		{
			agent: contractx.AgentTypeFinance,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(gaste|gasto|gastos|pague|compre|cobre|transferi|deposite|me pagaron)\b`),
				regexp.MustCompile(`\b(ingresos?|egresos?|saldo|balance|presupuesto|cuenta|tarjeta|movimientos?)\b`),
				regexp.MustCompile(`(\$\s?\d|\b\d+([.,]\d+)?\s?(pesos|dolares|usd|mxn|eur|cop|ars|soles)\b)`),
			},
		},
	}
}

type Option func(*Router)

func WithCompletionThreshold(pct int) Option {
	return func(r *Router) {
		if pct > 0 {
			r.threshold = pct
		}
	}
}

// Router is a pure, rule-based turn router. It never performs I/O.
type Router struct {
	threshold int
	keywords  []agentPatterns
}

func New(opts ...Option) *Router {
	r := &Router{
		threshold: DefaultCompletionThreshold,
		keywords:  buildKeywordPatterns(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Router) Decide(message string, snapshot *statex.Snapshot) contractx.Decision {
	text := Fold(message)
	tokens := tokenize(text)
	joined := strings.Join(tokens, " ")

	if n := len(tokens); n > 0 && n <= maxGreetingTokens && greetingPattern.MatchString(joined) {
		return contractx.Respond(r.greeting(snapshot), ReasonGreeting)
	}
	if n := len(tokens); n > 0 && n <= maxAckTokens && ackPattern.MatchString(joined) {
		return contractx.Respond(acknowledgement, ReasonAck)
	}

	if hint, ok := contractx.ParseAgentType(snapshot.Hint()); ok {
		return contractx.Route(hint, ReasonHint)
	}

	for _, group := range r.keywords {
		for _, p := range group.patterns {
			if p.MatchString(text) {
				return contractx.Route(group.agent, ReasonKeyword+":"+string(group.agent))
			}
		}
	}

	if snapshot.ProfileIncomplete(r.threshold) {
		return contractx.Route(contractx.AgentTypeOnboarding, ReasonFallback)
	}
	return contractx.Route(contractx.AgentTypeGoals, ReasonFallback)
}

const acknowledgement = "¡Con gusto! Aquí estoy si necesitas algo más."

func (r *Router) greeting(snapshot *statex.Snapshot) string {
	salute := "¡Hola!"
	if name := snapshot.DisplayName(); name != "" {
		salute = fmt.Sprintf("¡Hola, %s!", name)
	}
	if snapshot.ProfileIncomplete(r.threshold) {
		return salute + " Sigamos completando tu perfil para darte mejores recomendaciones. ¿Me cuentas un poco más sobre ti?"
	}
	return salute + " ¿En qué te puedo ayudar hoy? Puedo ayudarte con tus gastos, tus metas o tu negocio."
}

// Fold lower-cases s and strips diacritics.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.TrimSpace(folded)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ contractx.Router = (*Router)(nil)
