// Package peerclient defines the abstract peer-transport trait spec §9
// asks for in place of the source's client-type template class: "an
// abstract trait for the peer transport (operations: get_kv, set_kv,
// get_status), enabling the same test suite to run against an in-process
// mock transport." area.Db and its SyncEngine/Flooder talk only to the
// Client interface; the real wire implementation lives in rpc/client,
// and mock.go supplies the in-process double used by area's own tests.
package peerclient
