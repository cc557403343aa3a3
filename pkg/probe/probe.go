// Package probe inspects remote hosts over SSH and assembles the raw
// discovery documents the inventory service ingests. A host that cannot
// be reached still yields a document, with status "error", so unreachable
// devices enter the ledger instead of vanishing from it.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/homefleet/inventoryd/pkg/scheduler"
)

// Target is one host to inspect.
type Target struct {
	Hostname string
	Address  string
}

// Options are the SSH connection settings shared by all targets.
type Options struct {
	Username       string
	Port           int
	Password       string
	PrivateKeyPath string
	Timeout        time.Duration
}

type Prober struct {
	opts Options
	log  *zap.SugaredLogger
}

func New(opts Options) *Prober {
	if opts.Port == 0 {
		opts.Port = 22
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Prober{
		opts: opts,
		log:  zap.S().Named("probe"),
	}
}

// Probe inspects one host and returns its raw discovery document. It
// never returns an error: connection or command failures produce an
// error-status document instead.
func (p *Prober) Probe(ctx context.Context, target Target) []byte {
	client, err := p.dial(ctx, target.Address)
	if err != nil {
		p.log.Warnw("probe failed", "host", target.Hostname, "error", err)
		return errorDocument(target, fmt.Sprintf("ssh connect: %v", err))
	}
	defer client.Close()

	data := map[string]any{}

	if model, cores, err := p.cpu(client); err == nil {
		data["cpu"] = map[string]any{"model": model, "cores": cores}
	}
	if mem, err := p.memory(client); err == nil {
		data["memory"] = mem
	}
	if disk, err := p.disk(client); err == nil {
		data["disk"] = disk
	}
	if ifaces, err := p.interfaces(client); err == nil {
		data["network"] = map[string]any{"interfaces": ifaces}
	}
	if up, err := runCommand(client, "uptime -p"); err == nil {
		data["uptime"] = strings.TrimSpace(up)
	}
	if osInfo, err := runCommand(client, ". /etc/os-release && echo \"$PRETTY_NAME\""); err == nil {
		data["os"] = strings.TrimSpace(osInfo)
	}

	doc := map[string]any{
		"status":        "success",
		"hostname":      target.Hostname,
		"connection_ip": target.Address,
		"data":          data,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return errorDocument(target, fmt.Sprintf("encode discovery document: %v", err))
	}
	return raw
}

// Collect probes every target through the worker pool and returns the
// documents in target order.
func (p *Prober) Collect(ctx context.Context, targets []Target, pool *scheduler.Pool) [][]byte {
	futures := make([]*scheduler.Future[scheduler.Result[any]], len(targets))
	for i, t := range targets {
		if ctx.Err() != nil {
			break
		}
		target := t
		futures[i] = pool.Submit(func(workCtx context.Context) (any, error) {
			return p.Probe(workCtx, target), nil
		})
	}

	payloads := make([][]byte, len(targets))
	for i, t := range targets {
		if futures[i] == nil {
			payloads[i] = errorDocument(t, context.Canceled.Error())
			continue
		}
		res := <-futures[i].C()
		if res.Err != nil {
			payloads[i] = errorDocument(t, res.Err.Error())
			continue
		}
		payloads[i] = res.Data.([]byte)
	}
	return payloads
}

func (p *Prober) dial(ctx context.Context, address string) (*ssh.Client, error) {
	var auth []ssh.AuthMethod
	if p.opts.PrivateKeyPath != "" {
		key, err := os.ReadFile(p.opts.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if p.opts.Password != "" {
		auth = append(auth, ssh.Password(p.opts.Password))
	}

	cfg := &ssh.ClientConfig{
		User:            p.opts.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         p.opts.Timeout,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ssh.Dial("tcp", fmt.Sprintf("%s:%d", address, p.opts.Port), cfg)
}

func (p *Prober) cpu(client *ssh.Client) (string, int, error) {
	model, err := runCommand(client, `lscpu | awk -F': *' '/Model name/ {print $2; exit}'`)
	if err != nil {
		return "", 0, err
	}
	coresOut, err := runCommand(client, "nproc")
	if err != nil {
		return "", 0, err
	}
	cores, err := strconv.Atoi(strings.TrimSpace(coresOut))
	if err != nil {
		cores = 0
	}
	return strings.TrimSpace(model), cores, nil
}

func (p *Prober) memory(client *ssh.Client) (map[string]any, error) {
	out, err := runCommand(client, `free -h | awk 'NR==2 {print $2, $3, $4, $7}'`)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) < 4 {
		return nil, fmt.Errorf("unexpected free output: %q", out)
	}
	return map[string]any{
		"total":     fields[0],
		"used":      fields[1],
		"free":      fields[2],
		"available": fields[3],
	}, nil
}

func (p *Prober) disk(client *ssh.Client) (map[string]any, error) {
	out, err := runCommand(client, `df -h / | awk 'NR==2 {print $1, $2, $3, $4, $5, $6}'`)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) < 6 {
		return nil, fmt.Errorf("unexpected df output: %q", out)
	}
	return map[string]any{
		"filesystem":  fields[0],
		"size":        fields[1],
		"used":        fields[2],
		"available":   fields[3],
		"use_percent": fields[4],
		"mount":       fields[5],
	}, nil
}

func (p *Prober) interfaces(client *ssh.Client) ([]map[string]any, error) {
	out, err := runCommand(client, "ip -br addr")
	if err != nil {
		return nil, err
	}
	return parseBriefAddr(out), nil
}

// parseBriefAddr parses `ip -br addr` output: one interface per line as
// "name state addr addr ...".
func parseBriefAddr(out string) []map[string]any {
	var ifaces []map[string]any
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		addrs := []string{}
		if len(fields) > 2 {
			addrs = fields[2:]
		}
		ifaces = append(ifaces, map[string]any{
			"name":      fields[0],
			"state":     fields[1],
			"addresses": addrs,
		})
	}
	return ifaces
}

func errorDocument(target Target, message string) []byte {
	doc := map[string]any{
		"status":        "error",
		"hostname":      target.Hostname,
		"connection_ip": target.Address,
		"error":         message,
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func runCommand(client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	output, err := session.CombinedOutput(cmd)
	if err != nil {
		return "", err
	}
	return string(output), nil
}
