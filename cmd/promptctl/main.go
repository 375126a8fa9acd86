package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"promptledger/cmd/internal/passphrase"
	"promptledger/crypto"
)

const keystorePassEnv = "PROMPT_KEYSTORE_PASS"

var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = os.Getenv("PROMPT_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		if len(args) < 2 {
			fmt.Println("Usage: generate-key <keystore-file>")
			return
		}
		generateKey(args[1])
	case "address":
		if len(args) < 2 {
			fmt.Println("Usage: address <keystore-file>")
			return
		}
		showAddress(args[1])
	case "hash":
		if len(args) < 2 {
			fmt.Println("Usage: hash <prompt-file>")
			return
		}
		hashPrompt(args[1])
	case "balance":
		if len(args) < 2 {
			fmt.Println("Usage: balance <address>")
			return
		}
		call("ledger_balance", map[string]string{"address": args[1]})
	case "deposit":
		if len(args) < 3 {
			fmt.Println("Usage: deposit <address> <amount>")
			return
		}
		call("ledger_deposit", map[string]string{"address": args[1], "amount": args[2]})
	case "register":
		if len(args) < 3 {
			fmt.Println("Usage: register <caller> <username> [profileUri]")
			return
		}
		profileURI := ""
		if len(args) > 3 {
			profileURI = args[3]
		}
		call("creator_register", map[string]string{
			"caller":     args[1],
			"username":   args[2],
			"profileUri": profileURI,
		})
	case "creator":
		if len(args) < 2 {
			fmt.Println("Usage: creator <address>")
			return
		}
		call("creator_get", map[string]string{"address": args[1]})
	case "mint":
		if len(args) < 5 {
			fmt.Println("Usage: mint <caller> <prompt-file> <modelType> <royaltyBps> [metadataUri]")
			return
		}
		mintPrompt(args[1], args[2], args[3], args[4], args[5:])
	case "prompt":
		if len(args) < 2 {
			fmt.Println("Usage: prompt <id>")
			return
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid prompt id.")
			return
		}
		call("prompt_get", map[string]uint64{"id": id})
	case "record-usage":
		if len(args) < 4 {
			fmt.Println("Usage: record-usage <invoker> <promptId> <caller> [fee]")
			return
		}
		id, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid prompt id.")
			return
		}
		params := map[string]interface{}{
			"invoker":  args[1],
			"promptId": id,
			"caller":   args[3],
		}
		if len(args) > 4 {
			params["fee"] = args[4]
		}
		call("usage_record", params)
	case "distribute":
		if len(args) < 4 {
			fmt.Println("Usage: distribute <from> <creator> <amount>")
			return
		}
		call("revenue_distribute", map[string]string{
			"from":    args[1],
			"creator": args[2],
			"amount":  args[3],
		})
	case "withdraw":
		if len(args) < 2 {
			fmt.Println("Usage: withdraw <creator>")
			return
		}
		call("revenue_withdraw", map[string]string{"creator": args[1]})
	case "earnings":
		if len(args) < 2 {
			fmt.Println("Usage: earnings <address>")
			return
		}
		call("revenue_available", map[string]string{"address": args[1]})
	case "list":
		if len(args) < 5 {
			fmt.Println("Usage: list <seller> <promptId> <price> <durationSeconds>")
			return
		}
		id, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid prompt id.")
			return
		}
		duration, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid duration.")
			return
		}
		call("market_list", map[string]interface{}{
			"seller":   args[1],
			"promptId": id,
			"price":    args[3],
			"duration": duration,
		})
	case "purchase":
		if len(args) < 4 {
			fmt.Println("Usage: purchase <buyer> <listingId> <payment>")
			return
		}
		id, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid listing id.")
			return
		}
		call("market_purchase", map[string]interface{}{
			"buyer":     args[1],
			"listingId": id,
			"payment":   args[3],
		})
	case "has-access":
		if len(args) < 3 {
			fmt.Println("Usage: has-access <address> <promptId>")
			return
		}
		id, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid prompt id.")
			return
		}
		call("market_hasAccess", map[string]interface{}{"address": args[1], "promptId": id})
	case "metadata-put":
		if len(args) < 2 {
			fmt.Println("Usage: metadata-put <file>")
			return
		}
		metadataPut(args[1])
	case "metadata-get":
		if len(args) < 2 {
			fmt.Println("Usage: metadata-get <ref>")
			return
		}
		metadataGet(args[1])
	case "events":
		call("ledger_events", nil)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println(`Usage: promptctl [--rpc <endpoint>] <command> [args]

Key management:
  generate-key <keystore-file>                      Generate an operator key
  address <keystore-file>                           Print the key's address
  hash <prompt-file>                                Print the content hash of a prompt document

Ledger:
  balance <address>                                 Query the account balance
  deposit <address> <amount>                        Credit funds onto an account
  events                                            Dump the event log

Creators and prompts:
  register <caller> <username> [profileUri]         Register a creator
  creator <address>                                 Show a creator profile
  mint <caller> <prompt-file> <modelType> <royaltyBps> [metadataUri]
  prompt <id>                                       Show a prompt asset
  record-usage <invoker> <promptId> <caller> [fee]  Record a prompt invocation

Revenue and marketplace:
  distribute <from> <creator> <amount>              Split revenue for a creator
  withdraw <creator>                                Withdraw accrued earnings
  earnings <address>                                Show pending earnings
  list <seller> <promptId> <price> <durationSeconds>
  purchase <buyer> <listingId> <payment>
  has-access <address> <promptId>

Metadata:
  metadata-put <file>                               Store a document, print its reference
  metadata-get <ref>                                Fetch a stored document

The RPC endpoint defaults to http://localhost:8080 and can be overridden with
--rpc or the RPC_URL environment variable. Mutating commands send the
PROMPT_RPC_TOKEN environment variable as a bearer token.`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func generateKey(path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Error: %s already exists.\n", path)
		return
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Printf("Error generating key: %v\n", err)
		return
	}
	pass, err := passphrase.Read(keystorePassEnv, true)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fmt.Printf("Error writing keystore: %v\n", err)
		return
	}
	fmt.Printf("New key saved to %s\n", path)
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
}

func showAddress(path string) {
	pass, err := passphrase.Read(keystorePassEnv, false)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		fmt.Printf("Error loading keystore: %v\n", err)
		return
	}
	fmt.Println(key.PubKey().Address().String())
}

// hashPrompt prints the content hash a prompt document mints under.
func hashPrompt(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		return
	}
	fmt.Printf("0x%s\n", hex.EncodeToString(ethcrypto.Keccak256(content)))
}

func mintPrompt(caller, promptFile, modelType, royaltyRaw string, rest []string) {
	content, err := os.ReadFile(promptFile)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", promptFile, err)
		return
	}
	royalty, err := strconv.ParseUint(royaltyRaw, 10, 32)
	if err != nil {
		fmt.Println("Error: Invalid royalty basis points.")
		return
	}
	metadataURI := ""
	if len(rest) > 0 {
		metadataURI = rest[0]
	}
	if metadataURI == "" {
		// Push the document into the metadata sidecar so the asset carries a
		// resolvable reference out of the box.
		result, err := doRPC("metadata_put", map[string]string{
			"content": base64.StdEncoding.EncodeToString(content),
		})
		if err != nil {
			fmt.Printf("Error storing prompt document: %v\n", err)
			return
		}
		var put struct {
			Ref string `json:"ref"`
		}
		if err := json.Unmarshal(result, &put); err != nil {
			fmt.Printf("Error decoding metadata reference: %v\n", err)
			return
		}
		metadataURI = put.Ref
	}
	call("prompt_mint", map[string]interface{}{
		"caller":      caller,
		"contentHash": "0x" + hex.EncodeToString(ethcrypto.Keccak256(content)),
		"modelType":   modelType,
		"royaltyBps":  uint32(royalty),
		"metadataUri": metadataURI,
	})
}

func metadataPut(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", path, err)
		return
	}
	call("metadata_put", map[string]string{
		"content": base64.StdEncoding.EncodeToString(content),
	})
}

func metadataGet(ref string) {
	result, err := doRPC("metadata_get", map[string]string{"ref": ref})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	var out struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		return
	}
	content, err := base64.StdEncoding.DecodeString(out.Content)
	if err != nil {
		fmt.Printf("Error decoding content: %v\n", err)
		return
	}
	os.Stdout.Write(content)
}

// call performs the RPC and pretty-prints whatever came back.
func call(method string, params interface{}) {
	result, err := doRPC(method, params)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(pretty.String())
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func doRPC(method string, params interface{}) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(rpcAuthToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("invalid RPC response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("%s (code %d)", decoded.Error.Message, decoded.Error.Code)
	}
	return decoded.Result, nil
}
