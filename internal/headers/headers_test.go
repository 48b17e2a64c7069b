package headers

import (
	"strings"
	"testing"
)

const sample = `
typedef unsigned int SceUInt32;
typedef int SceUID;
typedef int (*SceKernelThreadEntry)(SceSize args, void *argp);

typedef struct SceDisplayFrameBuf {
	SceSize size;
	void *base;
	unsigned int pitch;
	unsigned int pixelformat;
	unsigned int width;
	unsigned int height;
} SceDisplayFrameBuf;

enum SceDisplaySetBufSync {
	SCE_DISPLAY_SETBUF_IMMEDIATE = 0,
	SCE_DISPLAY_SETBUF_NEXTFRAME = 1
};

int sceDisplaySetFrameBuf(const SceDisplayFrameBuf *pParam, int sync);
SceUID sceKernelCreateThread(const char *name, SceKernelThreadEntry entry,
	int initPriority, SceSize stackSize, SceUInt attr, int cpuAffinityMask,
	const SceKernelThreadOptParam *option);
int sceClibPrintf(const char *fmt, ...);
void sceKernelExitProcess(int res);
unsigned int sceKernelGetProcessTimeLow(void);
`

func load(t *testing.T, src string) *Catalogue {
	t.Helper()
	c := NewCatalogue()
	if err := c.Load(strings.NewReader(src)); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPrototypes(t *testing.T) {
	c := load(t, sample)

	sig, ok := c.SignatureFor("sceDisplaySetFrameBuf")
	if !ok {
		t.Fatal("sceDisplaySetFrameBuf not catalogued")
	}
	if sig.Return != "int" {
		t.Errorf("return = %q, want int", sig.Return)
	}
	if len(sig.Params) != 2 {
		t.Fatalf("params = %+v, want 2", sig.Params)
	}
	if sig.Params[0].Name != "pParam" || sig.Params[0].Type != "const SceDisplayFrameBuf *" {
		t.Errorf("param[0] = %+v", sig.Params[0])
	}
	if sig.Params[1].Name != "sync" || sig.Params[1].Type != "int" {
		t.Errorf("param[1] = %+v", sig.Params[1])
	}

	sig, ok = c.SignatureFor("sceKernelCreateThread")
	if !ok || len(sig.Params) != 7 {
		t.Fatalf("sceKernelCreateThread = %+v, %v", sig, ok)
	}
	if sig.Return != "SceUID" {
		t.Errorf("return = %q", sig.Return)
	}
}

func TestVariadicAndVoid(t *testing.T) {
	c := load(t, sample)

	sig, ok := c.SignatureFor("sceClibPrintf")
	if !ok || !sig.Variadic || len(sig.Params) != 1 {
		t.Errorf("sceClibPrintf = %+v, %v", sig, ok)
	}

	// (void) parameter list means zero parameters.
	sig, ok = c.SignatureFor("sceKernelGetProcessTimeLow")
	if !ok || len(sig.Params) != 0 || sig.Variadic {
		t.Errorf("sceKernelGetProcessTimeLow = %+v, %v", sig, ok)
	}
	if sig.Return != "unsigned int" {
		t.Errorf("return = %q", sig.Return)
	}
}

func TestTypesForInjection(t *testing.T) {
	c := load(t, sample)

	byName := map[string]TypeDecl{}
	for _, td := range c.TypesForInjection() {
		byName[td.Name] = td
	}
	if td := byName["SceUID"]; td.Kind != "typedef" {
		t.Errorf("SceUID = %+v", td)
	}
	if td := byName["SceKernelThreadEntry"]; td.Kind != "typedef" {
		t.Errorf("function-pointer typedef = %+v", td)
	}
	if td := byName["SceDisplayFrameBuf"]; td.Kind != "typedef" || !strings.Contains(td.Source, "pixelformat") {
		t.Errorf("struct typedef = %+v", td)
	}
	if td := byName["SceDisplaySetBufSync"]; td.Kind != "enum" {
		t.Errorf("enum = %+v", td)
	}
}

func TestSkipsGarbage(t *testing.T) {
	src := `
int good(void);
@!? not a declaration at all;
int;
struct Forward;
`
	c := load(t, src)
	if _, ok := c.SignatureFor("good"); !ok {
		t.Error("good prototype lost amid garbage")
	}
	if c.Skipped() == 0 {
		t.Error("expected skipped declarations to be counted")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestEmptyCatalogue(t *testing.T) {
	c := NewCatalogue()
	if _, ok := c.SignatureFor("anything"); ok {
		t.Error("empty catalogue resolved a signature")
	}
	if len(c.TypesForInjection()) != 0 {
		t.Error("empty catalogue has types")
	}
}
