package main

// @title           chimp-sync API
// @version         1.0
// @description     Tracks shop entity changes and reconciles a MailChimp account through batched API calls.

// @contact.name   chimp-sync maintainers
// @contact.url    https://github.com/custodia-labs/chimp-sync/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import "os"

var version = "dev"

func main() {
	os.Exit(execute())
}
