package parser

import "github.com/deepnoodle-ai/scriptc/internal/token"

// Precedence order for operators
const (
	_ int = iota
	LOWEST
	ASSIGN      // = += -=
	TERNARY     // ? :
	NULLISH     // ??
	OR          // ||
	AND         // &&
	BITOR       // |
	BITXOR      // ^
	BITAND      // &
	EQUALS      // == != === !==
	LESSGREATER // > or <
	SHIFT       // << >> >>>
	SUM         // + or -
	PRODUCT     // * / %
	POWER       // **
	PREFIX      // -X or !X
	POSTFIX     // X++
	CALL        // myFunction(X)
	INDEX       // array[index], obj.name
	HIGHEST
)

// Precedences for each token type
var precedences = map[token.Type]int{
	token.ASSIGN:          ASSIGN,
	token.PLUS_EQUALS:     ASSIGN,
	token.MINUS_EQUALS:    ASSIGN,
	token.ASTERISK_EQUALS: ASSIGN,
	token.SLASH_EQUALS:    ASSIGN,
	token.MOD_EQUALS:      ASSIGN,
	token.QUESTION:        TERNARY,
	token.NULLISH:         NULLISH,
	token.OR:              OR,
	token.AND:             AND,
	token.BITOR:           BITOR,
	token.CARET:           BITXOR,
	token.BITAND:          BITAND,
	token.EQ:              EQUALS,
	token.NOT_EQ:          EQUALS,
	token.STRICT_EQ:       EQUALS,
	token.STRICT_NOT_EQ:   EQUALS,
	token.LT:              LESSGREATER,
	token.LT_EQUALS:       LESSGREATER,
	token.GT:              LESSGREATER,
	token.GT_EQUALS:       LESSGREATER,
	token.LT_LT:           SHIFT,
	token.GT_GT:           SHIFT,
	token.GT_GT_GT:        SHIFT,
	token.PLUS:            SUM,
	token.MINUS:           SUM,
	token.SLASH:           PRODUCT,
	token.ASTERISK:        PRODUCT,
	token.MOD:             PRODUCT,
	token.POW:             POWER,
	token.PLUS_PLUS:       POSTFIX,
	token.MINUS_MINUS:     POSTFIX,
	token.LPAREN:          CALL,
	token.PERIOD:          INDEX,
	token.LBRACKET:        INDEX,
}
