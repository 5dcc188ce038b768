package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// Notification is the canonical form of a raw bank-deposit notification.
type Notification struct {
	DepositorName string
	Amount        int64 // whole currency units
}

// Parser turns raw push-notification text into a Notification. Parsing is a
// pure function of its input: the same title/body always yields the same
// result or the same error.
type Parser struct {
	accountKeyword  string
	withdrawKeyword string
	amountRE        *regexp.Regexp
	currencyMarker  string
	directionMarks  []string
}

// NewParser builds a parser for the configured account keyword using the
// default Korean bank push format: amounts end in 원, the depositor name
// precedes the → marker, 출금 marks a debit.
func NewParser(accountKeyword string) *Parser {
	return NewParserWithMarkers(accountKeyword, "출금", "원", []string{"→", "->"})
}

// NewParserWithMarkers allows overriding the notification markers for banks
// with a different push format.
func NewParserWithMarkers(accountKeyword, withdrawKeyword, currencyMarker string, directionMarks []string) *Parser {
	return &Parser{
		accountKeyword:  accountKeyword,
		withdrawKeyword: withdrawKeyword,
		currencyMarker:  currencyMarker,
		// leading digit run (with optional grouping separators) immediately
		// preceding the currency marker
		amountRE:       regexp.MustCompile(`([0-9][0-9,.]*)\s*` + regexp.QuoteMeta(currencyMarker)),
		directionMarks: directionMarks,
	}
}

// Parse extracts {depositor name, amount} from a raw notification. The event
// must reference the target account and must not be a withdrawal; anything
// else returns an error the caller treats as "ignore, do not persist".
func (p *Parser) Parse(title, body string) (Notification, error) {
	full := title + "\n" + body
	if p.accountKeyword != "" && !strings.Contains(full, p.accountKeyword) {
		return Notification{}, ErrIrrelevant
	}
	if p.withdrawKeyword != "" && strings.Contains(full, p.withdrawKeyword) {
		return Notification{}, ErrWithdrawal
	}
	amount, err := p.parseAmount(body, title)
	if err != nil {
		return Notification{}, err
	}
	name, err := p.parseDepositor(body)
	if err != nil {
		return Notification{}, err
	}
	return Notification{DepositorName: name, Amount: amount}, nil
}

func (p *Parser) parseAmount(body, title string) (int64, error) {
	m := p.amountRE.FindStringSubmatch(body)
	if m == nil {
		m = p.amountRE.FindStringSubmatch(title)
	}
	if m == nil {
		return 0, ErrNoAmount
	}
	digits := onlyDigits(m[1])
	if digits == "" {
		return 0, ErrNoAmount
	}
	amt, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrNoAmount
	}
	return amt, nil
}

// parseDepositor returns the text preceding the direction marker in the body,
// restricted to the marker's own line and stripped of any amount prefix that
// shares the line.
func (p *Parser) parseDepositor(body string) (string, error) {
	idx := -1
	for _, mark := range p.directionMarks {
		if i := strings.Index(body, mark); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if idx < 0 {
		return "", ErrNoDepositor
	}
	prefix := body[:idx]
	if nl := strings.LastIndexByte(prefix, '\n'); nl >= 0 {
		prefix = prefix[nl+1:]
	}
	// drop an amount that shares the line, e.g. "50,000원 김민준→...". Cut at
	// the end of the amount match, not at the currency marker itself: names
	// like 이지원 legitimately contain the marker character.
	if loc := p.amountRE.FindStringIndex(prefix); loc != nil {
		prefix = prefix[loc[1]:]
	}
	name := strings.TrimSpace(prefix)
	if name == "" {
		return "", ErrNoDepositor
	}
	return name, nil
}

// onlyDigits extracts decimal digits from a string.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
