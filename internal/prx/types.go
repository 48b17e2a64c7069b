package prx

import "vitaelf/internal/headers"

// BuiltinTypes returns the SCE structure declarations injected into every
// analysis, so the module info and process-param data can be typed even
// when no header catalogue is supplied.
func BuiltinTypes() []headers.TypeDecl {
	return []headers.TypeDecl{
		{
			Kind: "typedef",
			Name: "SceModuleInfo_prx2arm",
			Source: `typedef struct SceModuleInfo_prx2arm {
	unsigned short modattribute;
	unsigned char modversion[2];
	char modname[26];
	unsigned char terminal;
	unsigned char infoversion;
	unsigned int resreve;
	unsigned int ent_top;
	unsigned int ent_end;
	unsigned int stub_top;
	unsigned int stub_end;
	unsigned int dbg_fingerprint;
	unsigned int tls_top;
	unsigned int tls_filesz;
	unsigned int tls_memsz;
	unsigned int start_entry;
	unsigned int stop_entry;
	unsigned int arm_exidx_top;
	unsigned int arm_exidx_end;
	unsigned int arm_extab_top;
	unsigned int arm_extab_end;
} SceModuleInfo_prx2arm;`,
		},
		{
			Kind: "typedef",
			Name: "SceLibEnt_prx2arm",
			Source: `typedef struct SceLibEnt_prx2arm {
	unsigned char structsize;
	unsigned char auxattribute;
	unsigned short version;
	unsigned short attribute;
	unsigned short nfunc;
	unsigned short nvar;
	unsigned short ntlsvar;
	unsigned char hashinfo;
	unsigned char hashinfotls;
	unsigned char reserved2;
	unsigned char nidaltsets;
	unsigned int libname_nid;
	unsigned int libname;
	unsigned int nidtable;
	unsigned int addtable;
} SceLibEnt_prx2arm;`,
		},
		{
			Kind: "typedef",
			Name: "SceLibStub_prx2arm",
			Source: `typedef struct SceLibStub_prx2arm {
	unsigned char structsize;
	unsigned char reserved1;
	unsigned short version;
	unsigned short attribute;
	unsigned short nfunc;
	unsigned short nvar;
	unsigned short ntlsvar;
	unsigned char reserved2[4];
	unsigned int libname_nid;
	unsigned int libname;
	unsigned int sce_sdk_version;
	unsigned int func_nidtable;
	unsigned int func_table;
	unsigned int var_nidtable;
	unsigned int var_table;
	unsigned int tls_nidtable;
	unsigned int tls_table;
} SceLibStub_prx2arm;`,
		},
		{
			Kind: "typedef",
			Name: "SceProcessParam",
			Source: `typedef struct SceProcessParam {
	unsigned int size;
	unsigned int magic;
	unsigned int version;
	unsigned int fw_version;
	unsigned int main_thread_name;
	int main_thread_priority;
	unsigned int main_thread_stacksize;
	unsigned int main_thread_attribute;
	unsigned int process_name;
	unsigned int process_preload_disabled;
	unsigned int main_thread_cpu_affinity_mask;
	unsigned int sce_libc_param;
	unsigned int unk;
} SceProcessParam;`,
		},
	}
}
