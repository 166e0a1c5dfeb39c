// Command gentoken mints an API token for provisioning a user. The token
// goes to the client; only the hash is stored in users.token_hash.
package main

import (
	"fmt"
	"os"

	"github.com/focuse/focus-server-go/internal/util"
)

func main() {
	token, err := util.GenerateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("token_hash: %s\n", util.HashToken(token))
}
