// Package extractor implements the request extractor: a
// command-name-dispatched table that turns (dbid, command, argv) into
// an ordered sequence of key-requests describing what the command
// needs resident before it can execute.
package extractor

import (
	"math"
	"strconv"

	"github.com/openimsdk/tools/errs"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// Command is one argument vector: argv[0] is the command name.
type Command struct {
	Argv [][]byte
}

func (c Command) Name() string { return string(c.Argv[0]) }

// Func extracts the key-requests for one command at (txid, dbid).
// subCmdIdx identifies this command's position within a multi-command
// transaction, propagated unchanged into every emitted request so the
// caller can rewrite resolved indexes back into the original argv.
type Func func(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error)

// Table is the command-name dispatch table.
type Table struct {
	byName map[string]Func
}

// NewTable builds a table pre-populated with the concrete command
// extractors for the supported command set.
func NewTable() *Table {
	t := &Table{byName: make(map[string]Func)}
	t.Register("GET", wholeKey(types.IN, 0))
	t.Register("SET", wholeKey(types.OUT, 0))
	t.Register("GETDEL", wholeKey(types.IN, types.InDel))
	t.Register("GETEX", wholeKey(types.IN, 0))
	t.Register("DEL", multiWholeKey(types.DEL, 0))
	t.Register("EXISTS", multiWholeKey(types.IN, types.InMeta))
	t.Register("EXPIRE", wholeKey(types.IN, types.InMeta))

	t.Register("HGET", hashFields(types.IN, 1))
	t.Register("HSET", hashFieldsFromPairs(types.OUT))
	t.Register("HDEL", hashFields(types.DEL, 1))
	t.Register("HMGET", hashFields(types.IN, 1))
	t.Register("HGETALL", wholeKey(types.IN, 0))

	t.Register("ZADD", wholeKey(types.OUT, 0))
	t.Register("ZSCORE", wholeKey(types.IN, 0))
	t.Register("ZRANGEBYSCORE", zsetScoreRange)
	t.Register("ZRANGEBYLEX", zsetLexRange)

	t.Register("LINDEX", listIndex)
	t.Register("LSET", listIndex)
	t.Register("LRANGE", listRange)
	t.Register("LPOP", listPop(false))
	t.Register("RPOP", listPop(true))
	t.Register("LMOVE", listMove)

	t.Register("SINTERSTORE", setInterStore)
	t.Register("SORT", sortCommand)

	t.Register("FLUSHALL", flushSentinel)
	t.Register("FLUSHDB", flushSentinel)

	for _, scanCmd := range []string{"SCAN", "HSCAN", "SSCAN", "ZSCAN"} {
		t.Register(scanCmd, scanExtractor)
	}
	return t
}

// Register binds name to fn, overwriting any existing entry.
func (t *Table) Register(name string, fn Func) {
	t.byName[name] = fn
}

// Extract dispatches cmd to its registered Func. A command with no
// entry is NOP: the swap core has nothing to do before it executes.
func (t *Table) Extract(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) == 0 {
		return nil, errs.ErrArgs.WrapMsg("empty command")
	}
	fn, ok := t.byName[cmd.Name()]
	if !ok {
		return nil, nil
	}
	return fn(txid, dbid, subCmdIdx, cmd)
}

func req(txid types.TxID, dbid int, key []byte, intention types.Intention, flags types.IntentionFlags, shape types.Shape, subCmdIdx, argIdx int) *types.KeyRequest {
	return &types.KeyRequest{
		TxID:            txid,
		Level:           types.LevelKey,
		DBID:            dbid,
		Key:             key,
		Intention:       intention,
		IntentionFlags:  flags,
		Shape:           shape,
		SubCommandIndex: subCmdIdx,
		ArgIndex:        argIdx,
	}
}

// wholeKey builds an extractor for commands whose sole key is argv[1]
// and that address the whole value.
func wholeKey(intention types.Intention, flags types.IntentionFlags) Func {
	return func(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
		if len(cmd.Argv) < 2 {
			return nil, errs.ErrArgs.WrapMsg("missing key", "command", cmd.Name())
		}
		return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], intention, flags, types.WholeKeyShape(), subCmdIdx, 1)}, nil
	}
}

// multiWholeKey handles commands (DEL, EXISTS) whose every argument
// after argv[0] is an independent whole-key request.
func multiWholeKey(intention types.Intention, flags types.IntentionFlags) Func {
	return func(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
		if len(cmd.Argv) < 2 {
			return nil, errs.ErrArgs.WrapMsg("missing key", "command", cmd.Name())
		}
		out := make([]*types.KeyRequest, 0, len(cmd.Argv)-1)
		for i := 1; i < len(cmd.Argv); i++ {
			out = append(out, req(txid, dbid, cmd.Argv[i], intention, flags, types.WholeKeyShape(), subCmdIdx, i))
		}
		return out, nil
	}
}

// hashFields handles HGET/HMGET/HDEL: argv[1] is the key, the fields
// start at fieldsFrom.
func hashFields(intention types.Intention, fieldsFrom int) Func {
	return func(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
		if len(cmd.Argv) <= fieldsFrom+1 {
			return nil, errs.ErrArgs.WrapMsg("missing fields", "command", cmd.Name())
		}
		fields := append([][]byte(nil), cmd.Argv[fieldsFrom+1:]...)
		return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], intention, 0, types.SubKeysShape(fields), subCmdIdx, 1)}, nil
	}
}

// hashFieldsFromPairs handles HSET: argv[2], argv[4], ... are fields.
func hashFieldsFromPairs(intention types.Intention) Func {
	return func(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
		if len(cmd.Argv) < 4 || len(cmd.Argv)%2 != 0 {
			return nil, errs.ErrArgs.WrapMsg("malformed field/value pairs", "command", cmd.Name())
		}
		var fields [][]byte
		for i := 2; i < len(cmd.Argv); i += 2 {
			fields = append(fields, cmd.Argv[i])
		}
		return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], intention, 0, types.SubKeysShape(fields), subCmdIdx, 1)}, nil
	}
}

func zsetScoreRange(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) < 4 {
		return nil, errs.ErrArgs.WrapMsg("missing range", "command", cmd.Name())
	}
	min, minExcl, err := parseScoreBound(cmd.Argv[2])
	if err != nil {
		return nil, err
	}
	max, maxExcl, err := parseScoreBound(cmd.Argv[3])
	if err != nil {
		return nil, err
	}
	shape := types.Shape{Kind: types.ShapeScoreRange, ScoreRange: types.ScoreRange{Min: min, Max: max, MinExcl: minExcl, MaxExcl: maxExcl}}
	return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], types.IN, 0, shape, subCmdIdx, 1)}, nil
}

func parseScoreBound(raw []byte) (val float64, excl bool, err error) {
	s := string(raw)
	if len(s) > 0 && s[0] == '(' {
		excl = true
		s = s[1:]
	}
	switch s {
	case "+inf":
		return math.Inf(1), excl, nil
	case "-inf":
		return math.Inf(-1), excl, nil
	}
	val, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return 0, false, errs.ErrArgs.WrapMsg("bad score bound", "value", s)
	}
	return val, excl, nil
}

func zsetLexRange(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) < 4 {
		return nil, errs.ErrArgs.WrapMsg("missing range", "command", cmd.Name())
	}
	minInf, minExcl, minVal := parseLexBound(cmd.Argv[2])
	maxInf, maxExcl, maxVal := parseLexBound(cmd.Argv[3])
	shape := types.Shape{Kind: types.ShapeLexRange, LexRange: types.LexRange{
		Min: minVal, Max: maxVal, MinInf: minInf, MaxInf: maxInf, MinExcl: minExcl, MaxExcl: maxExcl,
	}}
	return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], types.IN, 0, shape, subCmdIdx, 1)}, nil
}

func parseLexBound(raw []byte) (inf, excl bool, val []byte) {
	switch string(raw) {
	case "-":
		return true, false, nil
	case "+":
		return true, false, nil
	}
	if len(raw) > 0 && raw[0] == '(' {
		return false, true, raw[1:]
	}
	if len(raw) > 0 && raw[0] == '[' {
		return false, false, raw[1:]
	}
	return false, false, raw
}

func listIndex(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) < 3 {
		return nil, errs.ErrArgs.WrapMsg("missing index", "command", cmd.Name())
	}
	idx, err := strconv.ParseInt(string(cmd.Argv[2]), 10, 64)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad index", "value", string(cmd.Argv[2]))
	}
	intention := types.IN
	if cmd.Name() == "LSET" {
		intention = types.OUT
	}
	shape := types.Shape{Kind: types.ShapeIndexRange, IndexRange: types.IndexRange{Start: idx, Stop: idx}}
	return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], intention, 0, shape, subCmdIdx, 2)}, nil
}

func listRange(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) < 4 {
		return nil, errs.ErrArgs.WrapMsg("missing range", "command", cmd.Name())
	}
	start, err := strconv.ParseInt(string(cmd.Argv[2]), 10, 64)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad start", "value", string(cmd.Argv[2]))
	}
	stop, err := strconv.ParseInt(string(cmd.Argv[3]), 10, 64)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad stop", "value", string(cmd.Argv[3]))
	}
	shape := types.Shape{Kind: types.ShapeIndexRange, IndexRange: types.IndexRange{Start: start, Stop: stop}}
	return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], types.IN, 0, shape, subCmdIdx, 2)}, nil
}

// listPop synthesises the [0,N-1] / [-N,-1] range LPOP/RPOP need.
func listPop(fromTail bool) Func {
	return func(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
		if len(cmd.Argv) < 2 {
			return nil, errs.ErrArgs.WrapMsg("missing key", "command", cmd.Name())
		}
		n := int64(1)
		if len(cmd.Argv) >= 3 {
			var err error
			n, err = strconv.ParseInt(string(cmd.Argv[2]), 10, 64)
			if err != nil {
				return nil, errs.ErrArgs.WrapMsg("bad count", "value", string(cmd.Argv[2]))
			}
		}
		var ir types.IndexRange
		if fromTail {
			ir = types.IndexRange{Start: -n, Stop: -1}
		} else {
			ir = types.IndexRange{Start: 0, Stop: n - 1}
		}
		shape := types.Shape{Kind: types.ShapeIndexRange, IndexRange: ir}
		return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], types.IN, types.InDel, shape, subCmdIdx, 1)}, nil
	}
}

// listMove emits two requests: the source with a range covering the
// moved end, and the destination as a whole-key OUT request carrying
// the InMeta flag, since LMOVE only needs to know the destination exists.
func listMove(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) < 5 {
		return nil, errs.ErrArgs.WrapMsg("missing args", "command", "LMOVE")
	}
	fromTail := string(cmd.Argv[3]) == "RIGHT"
	var ir types.IndexRange
	if fromTail {
		ir = types.IndexRange{Start: -1, Stop: -1}
	} else {
		ir = types.IndexRange{Start: 0, Stop: 0}
	}
	srcShape := types.Shape{Kind: types.ShapeIndexRange, IndexRange: ir}
	return []*types.KeyRequest{
		req(txid, dbid, cmd.Argv[1], types.IN, types.InDel, srcShape, subCmdIdx, 1),
		req(txid, dbid, cmd.Argv[2], types.OUT, types.InMeta, types.WholeKeyShape(), subCmdIdx, 2),
	}, nil
}

// setInterStore emits one IN request per source set plus an OUT
// request for the STORE destination.
func setInterStore(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) < 3 {
		return nil, errs.ErrArgs.WrapMsg("missing keys", "command", "SINTERSTORE")
	}
	out := []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], types.OUT, 0, types.WholeKeyShape(), subCmdIdx, 1)}
	for i := 2; i < len(cmd.Argv); i++ {
		out = append(out, req(txid, dbid, cmd.Argv[i], types.IN, 0, types.WholeKeyShape(), subCmdIdx, i))
	}
	return out, nil
}

// sortCommand handles SORT key [...] [STORE dest]: the source is
// always read; a trailing STORE dest adds an OUT request.
func sortCommand(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if len(cmd.Argv) < 2 {
		return nil, errs.ErrArgs.WrapMsg("missing key", "command", "SORT")
	}
	out := []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], types.IN, 0, types.WholeKeyShape(), subCmdIdx, 1)}
	for i := 2; i < len(cmd.Argv)-1; i++ {
		if string(cmd.Argv[i]) == "STORE" {
			out = append(out, req(txid, dbid, cmd.Argv[i+1], types.OUT, 0, types.WholeKeyShape(), subCmdIdx, i+1))
			break
		}
	}
	return out, nil
}

// flushSentinel emits the global server-level request FLUSHALL/FLUSHDB
// need: every in-flight key/db op must drain first.
func flushSentinel(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	level := types.LevelServer
	if cmd.Name() == "FLUSHDB" {
		level = types.LevelDatabase
	}
	return []*types.KeyRequest{{
		TxID:            txid,
		Level:           level,
		DBID:            dbid,
		Intention:       types.UTIL,
		SubCommandIndex: subCmdIdx,
	}}, nil
}

// scanExtractor handles SCAN/HSCAN/SSCAN/ZSCAN: a whole-key-or-none
// request (HSCAN/SSCAN/ZSCAN name a key at argv[1]; SCAN does not)
// carrying the METASCAN_SCAN flag. The request is UTIL, which the
// executor resolves without I/O; nothing binds it to a session of the
// scan package's session table.
func scanExtractor(txid types.TxID, dbid int, subCmdIdx int, cmd Command) ([]*types.KeyRequest, error) {
	if cmd.Name() == "SCAN" {
		return []*types.KeyRequest{{
			TxID:            txid,
			Level:           types.LevelDatabase,
			DBID:            dbid,
			Intention:       types.UTIL,
			IntentionFlags:  types.MetascanScan,
			SubCommandIndex: subCmdIdx,
		}}, nil
	}
	if len(cmd.Argv) < 2 {
		return nil, errs.ErrArgs.WrapMsg("missing key", "command", cmd.Name())
	}
	return []*types.KeyRequest{req(txid, dbid, cmd.Argv[1], types.UTIL, types.MetascanScan, types.WholeKeyShape(), subCmdIdx, 1)}, nil
}
