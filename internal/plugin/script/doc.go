// Package script compiles JavaScript mandates with goja.
//
// Sources and library references are evaluated in one runtime. A script
// declares sites with the global site() function:
//
//	site({
//	  name: "blog",
//	  subdomains: ["blog"],
//	  get: function (req) { return "<h1>" + req.path + "</h1>"; },
//	  authorize: function (req, creds) {
//	    if (creds && auth.checkPassword(HASH, creds.password)) return true;
//	    return { ok: false, realm: "blog" };
//	  },
//	  cache: function (req) { return { etag: '"v1"', maxAge: 60 }; },
//	});
//
// refresh(ms) sets the watchdog period. The host also provides console and
// auth.checkPassword(bcryptHash, password). A runtime is single-threaded,
// so calls into one module are serialized.
package script
