// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

// queue holds tokens that were pushed back, or produced by an expansion,
// and must be read before anything more is taken from the lexer.
//
// The front of the queue is the end of the slice, so pushing a token list
// back in front of the input is an append of the list in reverse order.
//
// Notes:
//   - pushFront and popFront are O(1) amortized.
//   - pushFrontList copies the list; callers may reuse their slice.
type queue struct {
	toks []Token
}

func (q *queue) len() int {
	return len(q.toks)
}

// pushFront adds a token at the front, so it is the next one read.
func (q *queue) pushFront(tok Token) {
	q.toks = append(q.toks, tok)
}

// pushFrontList adds the tokens at the front, keeping their order.
func (q *queue) pushFrontList(toks TokenList) {
	for i := len(toks) - 1; i >= 0; i-- {
		q.toks = append(q.toks, toks[i])
	}
}

// popFront removes and returns the front token.
// ok is false when the queue is empty.
func (q *queue) popFront() (tok Token, ok bool) {
	n := len(q.toks)
	if n == 0 {
		return Token{}, false
	}
	tok = q.toks[n-1]
	q.toks = q.toks[:n-1]
	return tok, true
}

// drain empties the queue and returns its tokens in reading order.
func (q *queue) drain() TokenList {
	if len(q.toks) == 0 {
		return nil
	}
	toks := make(TokenList, len(q.toks))
	for i, tok := range q.toks {
		toks[len(q.toks)-1-i] = tok
	}
	q.toks = q.toks[:0]
	return toks
}
