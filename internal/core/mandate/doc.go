// Package mandate implements the hot-reloadable build unit that supplies
// sites to the server.
//
// A Mandate is described by a manifest file (<name>.sbr) listing build
// references and source files. Building hands those to a Compiler and, on
// success, publishes a new generation: the compiled Module plus the table
// of sites it declares. Failed builds leave the previous generation in
// service and write <name>.buildfailure.log next to the manifest.
//
// Requests hold a Lease on the generation they were routed to, so a
// replaced module is closed only once its last in-flight request is done.
package mandate
