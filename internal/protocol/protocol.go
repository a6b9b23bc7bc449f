package protocol

import (
	"strconv"
	"strings"

	"github.com/google/shlex"
)

const Version = "1.0"

// Output channel messages.
const (
	MsgPong         = "PONG"
	MsgNewWorld     = "NEW_WORLD"
	MsgWorldUpdated = "WORLD_UPDATED"
	MsgLog          = "LOG"
	MsgThingsStart  = "THINGS_HERE START"
	MsgThingsEnd    = "THINGS_HERE END"
)

// Command verbs. Upper-case verbs edit the world; lower-case verbs are
// player actions and only run on an active world.
const (
	VerbQuit       = "QUIT"
	VerbPing       = "PING"
	VerbThingsHere = "THINGS_HERE"

	VerbMakeWorld      = "MAKE_WORLD"
	VerbSeedRandomness = "SEED_RANDOMNESS"
	VerbTurn           = "TURN"
	VerbPlayerType     = "PLAYER_TYPE"
	VerbMapLength      = "MAP_LENGTH"
	VerbMap            = "MAP"
	VerbWorldActive    = "WORLD_ACTIVE"

	VerbTAID     = "TA_ID"
	VerbTAEffort = "TA_EFFORT"
	VerbTAName   = "TA_NAME"

	VerbTTID          = "TT_ID"
	VerbTTName        = "TT_NAME"
	VerbTTSymbol      = "TT_SYMBOL"
	VerbTTLifepoints  = "TT_LIFEPOINTS"
	VerbTTTool        = "TT_TOOL"
	VerbTTToolPower   = "TT_TOOLPOWER"
	VerbTTStartNumber = "TT_START_NUMBER"
	VerbTTStorage     = "TT_STORAGE"
	VerbTTCorpseID    = "TT_CORPSE_ID"
	VerbTTProliferate = "TT_PROLIFERATE"

	VerbTID          = "T_ID"
	VerbTType        = "T_TYPE"
	VerbTPosY        = "T_POSY"
	VerbTPosX        = "T_POSX"
	VerbTLifepoints  = "T_LIFEPOINTS"
	VerbTSatiation   = "T_SATIATION"
	VerbTCommand     = "T_COMMAND"
	VerbTArgument    = "T_ARGUMENT"
	VerbTProgress    = "T_PROGRESS"
	VerbTCarries     = "T_CARRIES"
	VerbTMemMap      = "T_MEMMAP"
	VerbTMemDepthMap = "T_MEMDEPTHMAP"
	VerbTMemThing    = "T_MEMTHING"

	VerbWait   = "wait"
	VerbMove   = "move"
	VerbPickUp = "pick_up"
	VerbDrop   = "drop"
	VerbUse    = "use"
	VerbAI     = "ai"
)

// Tokenize splits a command line with shell quoting rules. A '#' starting a
// token comments out the rest of the line.
func Tokenize(line string) ([]string, error) {
	toks, err := shlex.Split(line)
	if err != nil {
		return nil, Errorf(ErrProtoBadRequest, "tokenize: %v", err)
	}
	return toks, nil
}

// IsPlayerVerb reports whether verb names an in-world player action.
func IsPlayerVerb(verb string) bool {
	return verb != "" && verb[0] >= 'a' && verb[0] <= 'z'
}

// ParseInt parses a decimal integer within [min, max].
func ParseInt(s string, min, max int64) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, Errorf(ErrOutOfRange, "not an integer: %q", s)
	}
	if v < min || v > max {
		return 0, Errorf(ErrOutOfRange, "value %d outside %d..%d", v, min, max)
	}
	return v, nil
}

// Quote wraps s in double quotes so Tokenize yields it back as one token.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// Line joins a verb and its arguments into one command line.
func Line(verb string, args ...string) string {
	if len(args) == 0 {
		return verb
	}
	return verb + " " + strings.Join(args, " ")
}
