// This is free and unencumbered software released into the public domain.

package main

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
	"nullprogram.com/x/optparse"

	"git.sr.ht/~example/pgpwriter/openpgp"
)

const (
	cmdKey = iota

	algoRSA
	algoEd25519
)

// Print the message like fmt.Printf() and then os.Exit(1).
func fatal(format string, args ...interface{}) {
	buf := bytes.NewBufferString("pgpemit: ")
	fmt.Fprintf(buf, format, args...)
	buf.WriteRune('\n')
	os.Stderr.Write(buf.Bytes())
	os.Exit(1)
}

type config struct {
	cmd int

	algorithm int
	bits      int
	armor     bool
	created   int64
	now       bool
	protect   bool
	public    bool
	uid       string
	verbose   bool
}

func usage(w io.Writer) {
	bw := bufio.NewWriter(w)
	i := "  "
	p := "pgpemit"
	f := func(s ...interface{}) { fmt.Fprintln(bw, s...) }
	f("Usage:")
	f(i, p, "-u id [-ahnpv] [-g rsa|ed25519] [-b bits] [-t secs]")
	f("Options:")
	f(i, "-a, --armor            encode output in ASCII armor")
	f(i, "-b, --bits N           RSA modulus size in bits [3072]")
	f(i, "-g, --algorithm NAME   primary key algorithm: rsa|ed25519 [ed25519]")
	f(i, "-h, --help             print this help message")
	f(i, "-n, --now              use current time as creation date")
	f(i, "-p, --public           only output the public key")
	f(i, "-x, --protect          protect the secret key with a passphrase")
	f(i, "-t, --time SECONDS     key creation date (unix epoch seconds)")
	f(i, "-u, --uid USERID       user ID for the key")
	f(i, "-v, --verbose          print additional information")
	bw.Flush()
}

func parse() *config {
	conf := config{cmd: cmdKey, algorithm: algoEd25519, bits: 3072}

	options := []optparse.Option{
		{"armor", 'a', optparse.KindNone},
		{"bits", 'b', optparse.KindRequired},
		{"algorithm", 'g', optparse.KindRequired},
		{"help", 'h', optparse.KindNone},
		{"now", 'n', optparse.KindNone},
		{"public", 'p', optparse.KindNone},
		{"protect", 'x', optparse.KindNone},
		{"time", 't', optparse.KindRequired},
		{"uid", 'u', optparse.KindRequired},
		{"verbose", 'v', optparse.KindNone},
	}

	var uidSeen bool
	results, _, err := optparse.Parse(options, os.Args)
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}
	for _, result := range results {
		switch result.Long {
		case "armor":
			conf.armor = true
		case "bits":
			bits, err := strconv.Atoi(result.Optarg)
			if err != nil {
				fatal("--bits (-b): %s", err)
			}
			conf.bits = bits
		case "algorithm":
			switch result.Optarg {
			case "rsa":
				conf.algorithm = algoRSA
			case "ed25519":
				conf.algorithm = algoEd25519
			default:
				fatal("invalid algorithm: %s", result.Optarg)
			}
		case "help":
			usage(os.Stdout)
			os.Exit(0)
		case "now":
			conf.created = time.Now().Unix()
			conf.now = true
		case "public":
			conf.public = true
		case "protect":
			conf.protect = true
		case "time":
			t, err := strconv.ParseUint(result.Optarg, 10, 32)
			if err != nil {
				fatal("--time (-t): %s", err)
			}
			conf.created = int64(t)
		case "uid":
			conf.uid = result.Optarg
			if len(conf.uid) > 255 {
				fatal("user ID length must be <= 255 bytes")
			}
			if !utf8.ValidString(conf.uid) {
				fatal("user ID must be valid UTF-8")
			}
			uidSeen = true
		case "verbose":
			conf.verbose = true
		}
	}

	if !uidSeen {
		if email := os.Getenv("EMAIL"); email != "" {
			if realname := os.Getenv("REALNAME"); realname != "" {
				conf.uid = fmt.Sprintf("%s <%s>", realname, email)
			}
		}
		if conf.uid == "" {
			fatal("--uid is required (or $REALNAME and $EMAIL)")
		}
	}
	if !conf.now && conf.created == 0 {
		conf.created = time.Now().Unix()
	}
	return &conf
}

// readPassphrase reads and confirms a passphrase from the controlling
// terminal, echo disabled.
func readPassphrase() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, "passphrase: ")
	p1, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(os.Stderr, "passphrase (again): ")
	p2, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(p1, p2) {
		return nil, fmt.Errorf("passphrases do not match")
	}
	return p1, nil
}

// generateRSAPrimary creates an RSA signing key pair of conf.bits
// modulus size and wraps it in the core's public/secret key records.
func generateRSAPrimary(conf *config) (*openpgp.PublicKey, *openpgp.SecretKey, openpgp.Signer, error) {
	priv, err := rsa.GenerateKey(rand.Reader, conf.bits)
	if err != nil {
		return nil, nil, nil, err
	}
	pub := &openpgp.PublicKey{
		Version:   4,
		Created:   uint32(conf.created),
		Algorithm: openpgp.PubKeyRSA,
		RSA: &openpgp.RSAPublicMaterial{
			N: priv.PublicKey.N,
			E: big.NewInt(int64(priv.PublicKey.E)),
		},
	}
	u := new(big.Int).ModInverse(priv.Primes[0], priv.Primes[1])
	sec := &openpgp.SecretKey{
		Public: *pub,
		RSA: &openpgp.RSASecretMaterial{
			D: priv.D,
			P: priv.Primes[0],
			Q: priv.Primes[1],
			U: u,
		},
	}
	signer := &openpgp.RSASigner{Priv: priv, Hash: openpgp.HashSHA256}
	return pub, sec, signer, nil
}

// generateEd25519Primary creates an Ed25519 signing key pair.
func generateEd25519Primary(conf *config) (*openpgp.PublicKey, *openpgp.SecretKey, openpgp.Signer, error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, nil, err
	}
	point := new(big.Int).SetBytes(append([]byte{0x40}, pubKey...))
	pub := &openpgp.PublicKey{
		Version:   4,
		Created:   uint32(conf.created),
		Algorithm: openpgp.PubKeyEdDSA,
		EC:        &openpgp.ECMaterial{Curve: openpgp.CurveEd25519, Point: point},
	}
	sec := &openpgp.SecretKey{
		Public: *pub,
		EC:     new(big.Int).SetBytes(privKey.Seed()),
	}
	signer := &openpgp.EdDSASigner{Priv: privKey}
	return pub, sec, signer, nil
}

func buildKey(conf *config) (openpgp.TransferableKey, error) {
	var pub *openpgp.PublicKey
	var sec *openpgp.SecretKey
	var signer openpgp.Signer
	var err error

	switch conf.algorithm {
	case algoRSA:
		pub, sec, signer, err = generateRSAPrimary(conf)
	case algoEd25519:
		pub, sec, signer, err = generateEd25519Primary(conf)
	default:
		err = fmt.Errorf("unknown algorithm selection")
	}
	if err != nil {
		return nil, err
	}

	var password []byte
	if conf.protect {
		password, err = readPassphrase()
		if err != nil {
			return nil, err
		}
		sec.Protection = openpgp.Protection{
			Usage:   openpgp.UsageEncryptedAndHashed,
			SymmAlg: openpgp.CipherAES256,
			S2K: openpgp.S2KParams{
				Specifier:  openpgp.S2KIteratedAndSalted,
				HashAlg:    openpgp.HashSHA256,
				Iterations: 1 << 20,
			},
		}
	}

	var pubBuf, secBuf, uidBuf, sigBuf bytes.Buffer

	pubOut := openpgp.NewOutput(&pubBuf)
	if err := openpgp.WriteStructPublicKey(pubOut, openpgp.TagPublicKey, pub); err != nil {
		return nil, err
	}

	secOut := openpgp.NewOutput(&secBuf)
	if err := openpgp.WriteStructSecretKey(secOut, openpgp.TagSecretKey, sec, password); err != nil {
		return nil, err
	}

	uid := openpgp.UserID(conf.uid)
	uidPkt, err := uid.Packet()
	if err != nil {
		return nil, err
	}
	uidBuf.Write(uidPkt)

	sigOut := openpgp.NewOutput(&sigBuf)
	opts := openpgp.SigningOptions{
		Created:       uint32(conf.created),
		KeyFlags:      0x03, // certify + sign
		PrimaryUserID: true,
		PrefSymm:      []openpgp.SymmetricAlgorithm{openpgp.CipherAES256, openpgp.CipherAES128},
		PrefHash:      []openpgp.HashAlgorithm{openpgp.HashSHA256, openpgp.HashSHA512},
	}
	if err := openpgp.SelfCertify(sigOut, pub, uid, signer, openpgp.HashSHA256, opts); err != nil {
		return nil, err
	}

	key := openpgp.TransferableKey{
		{Tag: openpgp.TagPublicKey, Bytes: pubBuf.Bytes()},
		{Tag: openpgp.TagSecretKey, Bytes: secBuf.Bytes()},
		{Tag: openpgp.TagUserID, Bytes: uidBuf.Bytes()},
		{Tag: openpgp.TagSignature, Bytes: sigBuf.Bytes()},
	}
	return key, nil
}

func main() {
	conf := parse()
	key, err := buildKey(conf)
	if err != nil {
		fatal("%s", err)
	}

	mode := openpgp.ModeSecret
	if conf.public {
		mode = openpgp.ModePublic
	}

	out := openpgp.NewOutput(os.Stdout)
	if err := openpgp.WriteTransferableKey(out, key, mode, conf.armor); err != nil {
		fatal("%s", err)
	}
	if conf.verbose {
		fmt.Fprintf(os.Stderr, "pgpemit: wrote %s key for %q\n", map[bool]string{true: "public", false: "secret"}[conf.public], conf.uid)
	}
}
