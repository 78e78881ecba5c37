// Package fixtures provides small Component implementations reused across
// this module's tests: plain RAM, read-only ROM, and a component that
// issues a fixed redirect. None of these are part of the public API; real
// chip models are external collaborators (spec.md section 1).
package fixtures

import (
	"github.com/kay-lambdadelta/multiemu-sub000/address"
	"github.com/kay-lambdadelta/multiemu-sub000/component"
)

// RAM is a fully readable and writable block of memory, origin-relative.
type RAM struct {
	component.Base
	Origin address.Address
	Data   []byte
}

// NewRAM creates RAM of the given size at origin, filled with fill.
func NewRAM(origin address.Address, size int, fill byte) *RAM {
	data := make([]byte, size)
	for i := range data {
		data[i] = fill
	}
	return &RAM{Origin: origin, Data: data}
}

func (m *RAM) ReadMemory(addr address.Address, _ address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	off := addr - m.Origin
	copy(buf, m.Data[off:off+address.Address(len(buf))])
	return nil, nil
}

func (m *RAM) WriteMemory(addr address.Address, _ address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	off := addr - m.Origin
	copy(m.Data[off:off+address.Address(len(buf))], buf)
	return nil, nil
}

func (m *RAM) PreviewMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	return m.ReadMemory(addr, space, buf)
}

// ROM is read-only memory; writes are Denied.
type ROM struct {
	component.Base
	Origin address.Address
	Data   []byte
}

func NewROM(origin address.Address, data []byte) *ROM {
	return &ROM{Origin: origin, Data: append([]byte(nil), data...)}
}

func (m *ROM) ReadMemory(addr address.Address, _ address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	off := addr - m.Origin
	copy(buf, m.Data[off:off+address.Address(len(buf))])
	return nil, nil
}

func (m *ROM) WriteMemory(addr address.Address, _ address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	rng := address.Range{Start: addr, End: addr + address.Address(len(buf)) - 1}
	return component.RecordMap{rng: {Kind: component.Denied}}, nil
}

func (m *ROM) PreviewMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	return m.ReadMemory(addr, space, buf)
}

// Redirector maps one address range but always redirects single-byte reads
// of TargetAddr to Destination in the same or a different address space.
type Redirector struct {
	component.Base
	Origin      address.Address
	Size        int
	TargetAddr  address.Address
	Destination address.Address
	DestSpace   address.AddressSpaceId
}

func (r *Redirector) ReadMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	if addr == r.TargetAddr && len(buf) == 1 {
		rng := address.Range{Start: addr, End: addr}
		return component.RecordMap{rng: {Kind: component.Redirect, Address: r.Destination, Space: r.DestSpace}}, nil
	}
	for i := range buf {
		buf[i] = 0
	}
	return nil, nil
}

func (r *Redirector) WriteMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	return nil, nil
}

func (r *Redirector) PreviewMemory(addr address.Address, space address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	return r.ReadMemory(addr, space, buf)
}

// ClearOnReadTimer emulates a register whose read clears a flag, to exercise
// preview purity (spec.md scenario F). Read returns the flag value then
// clears it; Preview returns the value without clearing.
type ClearOnReadTimer struct {
	component.Base
	Origin address.Address
	Flag   byte
}

func (t *ClearOnReadTimer) ReadMemory(addr address.Address, _ address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	buf[0] = t.Flag
	t.Flag = 0
	return nil, nil
}

func (t *ClearOnReadTimer) WriteMemory(addr address.Address, _ address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	t.Flag = buf[0]
	return nil, nil
}

func (t *ClearOnReadTimer) PreviewMemory(addr address.Address, _ address.AddressSpaceId, buf []byte) (component.RecordMap, error) {
	buf[0] = t.Flag
	return nil, nil
}
