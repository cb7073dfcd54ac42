// Package lock implements the hierarchical server/database/key lock
// manager: a dependency lattice of lock nodes connected by
// unidirectional "arrows", with a proceed/unlock signalling protocol
// that lets requests within one transaction overlap while still
// serialising across transactions.
//
// The manager is driven exclusively by the single executor goroutine
// that runs the command loop and all lock manager mutations; it holds
// no internal mutex and is not safe for concurrent calls from multiple
// goroutines. Arena-allocated nodes addressed by integer index are a
// common workaround in languages without a garbage collector; in Go a
// plain pointer-linked node serves the same purpose and is freed by
// the collector once nothing references it, so no arena bookkeeping is
// carried here.
package lock

import (
	"github.com/swapdb/swapcore/internal/swap/types"
)

// arrow is a unidirectional from→to link. fired is set the first time
// either Proceed or Unlock dispatches it, so a later call never double
// fires the same arrow.
type arrow struct {
	to    *lockNode
	fired bool
}

// lockNode is one node of the dependency lattice: a lock bound to a
// single (container, txid) pair, holding every key-request entry that
// shares it.
type lockNode struct {
	txid  types.TxID
	level types.Level

	outgoing []arrow
	pending  int // count of incoming arrows not yet fired
	ready    bool

	entries   []*Entry
	remaining int // entries not yet Unlock()ed

	// Set only for the last lock of a KEY container, so Unlock can
	// garbage-collect the container's map entry once it drains.
	ownerDB  *dbContainer
	ownerKey string
}

func (n *lockNode) activate() {
	n.ready = true
	for _, e := range n.entries {
		e.fireAcquire()
	}
}

func newNode(txid types.TxID, level types.Level) *lockNode {
	n := &lockNode{txid: txid, level: level}
	n.ready = true // becomes false below if a predecessor links into it
	return n
}

func link(from, to *lockNode) {
	from.outgoing = append(from.outgoing, arrow{to: to})
	to.pending++
	to.ready = false
}

// Entry is the handle a caller holds for one key-request while it is
// bound to a lock. It is the "pd" payload threaded through the swap
// context.
type Entry struct {
	Req  *types.KeyRequest
	node *lockNode

	onAcquire func()
	acquired  bool
}

func (e *Entry) fireAcquire() {
	if e.acquired {
		return
	}
	e.acquired = true
	e.onAcquire()
}

type container struct {
	level types.Level
	last  *lockNode
}

type dbContainer struct {
	container
	keys map[string]*container
}

// Manager is the C7 lock manager: one server container, N database
// containers, and on-demand key containers within each database.
type Manager struct {
	server container
	dbs    []dbContainer
}

// NewManager creates a manager with numDBs database containers.
func NewManager(numDBs int) *Manager {
	m := &Manager{
		server: container{level: types.LevelServer},
		dbs:    make([]dbContainer, numDBs),
	}
	for i := range m.dbs {
		m.dbs[i] = dbContainer{
			container: container{level: types.LevelDatabase},
			keys:      make(map[string]*container),
		}
	}
	return m
}

func fire(a *arrow) {
	if a.fired {
		return
	}
	a.fired = true
	a.to.pending--
	if a.to.pending == 0 {
		a.to.activate()
	}
}

// Acquire binds req to a lock, creating or reusing chain nodes in the
// server/database/key containers in that order, then either invokes
// onAcquire immediately (node already ready) or defers it until the
// node becomes ready through a predecessor's Proceed/Unlock.
func (m *Manager) Acquire(req *types.KeyRequest, onAcquire func()) *Entry {
	serverEmptyBefore := m.server.last == nil

	node := m.step(&m.server, req.TxID)

	var db *dbContainer
	if req.Level == types.LevelDatabase || req.Level == types.LevelKey {
		db = &m.dbs[req.DBID]
		node = m.step(&db.container, req.TxID)
	}
	if req.Level == types.LevelKey {
		keyName := string(req.Key)
		kc, ok := db.keys[keyName]
		if !ok {
			kc = &container{level: types.LevelKey}
			db.keys[keyName] = kc
		}
		node = m.step(kc, req.TxID)
		node.ownerDB = db
		node.ownerKey = keyName
	}

	if req.Level == types.LevelServer && serverEmptyBefore {
		for i := range m.dbs {
			if last := m.dbs[i].last; last != nil {
				link(last, node)
			}
			for _, kc := range m.dbs[i].keys {
				if kc.last != nil {
					link(kc.last, node)
				}
			}
		}
	}

	e := &Entry{Req: req, node: node, onAcquire: onAcquire}
	node.entries = append(node.entries, e)
	node.remaining++

	if node.ready {
		e.fireAcquire()
	}
	return e
}

// step materialises the chain node for container c at txid, creating
// and linking a new one only if the container's last lock belongs to a
// different transaction.
func (m *Manager) step(c *container, txid types.TxID) *lockNode {
	last := c.last
	if last != nil && last.txid == txid {
		return last
	}
	n := newNode(txid, c.level)
	if last != nil {
		link(last, n)
	}
	c.last = n
	return n
}

// Proceed fires every outgoing arrow of entry's node whose target
// shares the node's txid (an intra-transaction arrow), letting sibling
// requests of the same transaction begin without waiting for this
// request's asynchronous I/O. Safe to call once per entry; later calls
// on the same node are no-ops because arrows are marked fired.
func (m *Manager) Proceed(e *Entry) {
	node := e.node
	for i := range node.outgoing {
		if node.outgoing[i].to.txid == node.txid {
			fire(&node.outgoing[i])
		}
	}
}

// Unlock marks entry's asynchronous work complete. Once every entry
// bound to the node has unlocked, remaining (cross-transaction) arrows
// fire and the node is detached so a garbage-collected key container
// can be removed from its parent map.
func (m *Manager) Unlock(e *Entry) {
	node := e.node
	node.remaining--
	if node.remaining > 0 {
		return
	}
	for i := range node.outgoing {
		fire(&node.outgoing[i])
	}
	if node.ownerDB != nil && node.ownerDB.keys[node.ownerKey] != nil && node.ownerDB.keys[node.ownerKey].last == node {
		delete(node.ownerDB.keys, node.ownerKey)
	}
}

// WouldBlock reports whether acquiring a KEY-level request for
// (dbid, key) under txid would have to wait: true iff any ancestor
// container's last lock belongs to a different transaction or still
// has outstanding incoming arrows. Callers use it to skip lock creation
// entirely on uncontended hot paths.
func (m *Manager) WouldBlock(txid types.TxID, dbid int, key []byte) bool {
	if blocks(m.server.last, txid) {
		return true
	}
	db := &m.dbs[dbid]
	if blocks(db.last, txid) {
		return true
	}
	if kc, ok := db.keys[string(key)]; ok {
		return blocks(kc.last, txid)
	}
	return false
}

func blocks(n *lockNode, txid types.TxID) bool {
	if n == nil {
		return false
	}
	return n.txid != txid || !n.ready
}
