// Package guildsync declares the public contracts of the sync engine: cached
// entities, the normalized Event envelope delivered to subscribers, bus and
// subscription contracts, and sentinel errors.
//
// Entities hold foreign keys to their owners, never owning references. Resolve
// a relation by looking the key up in the owning cache, for example
// message.Channel(client.Channels()).
package guildsync
