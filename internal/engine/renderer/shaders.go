package renderer

// Positions only; faces are shaded flat from screen-space derivatives.
const litVertex = `#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 uModel;
uniform mat4 uViewProj;
uniform mat4 uLightSpace;

out vec3 vWorld;
out vec4 vLightPos;

void main() {
	vec4 world = uModel * vec4(aPos, 1.0);
	vWorld = world.xyz;
	vLightPos = uLightSpace * world;
	gl_Position = uViewProj * world;
}
`

const litFragment = `#version 410 core
#define MAX_LIGHTS 4

in vec3 vWorld;
in vec4 vLightPos;

uniform vec4 uBaseColor;
uniform float uRoughness;
uniform float uMetalness;
uniform float uEnvIntensity;

uniform float uAmbient;
uniform int uLightCount;
uniform vec3 uLightDir[MAX_LIGHTS];
uniform vec3 uLightRadiance[MAX_LIGHTS];
uniform int uKeyLight;

uniform vec3 uCameraPos;
uniform sampler2DShadow uShadowMap;
uniform int uReceiveShadow;

out vec4 FragColor;

float shadowFactor(vec3 n, vec3 l) {
	if (uReceiveShadow == 0) {
		return 1.0;
	}
	vec3 p = vLightPos.xyz / vLightPos.w * 0.5 + 0.5;
	if (p.z > 1.0) {
		return 1.0;
	}
	float bias = max(0.005 * (1.0 - dot(n, l)), 0.0005);
	vec2 texel = 1.0 / vec2(textureSize(uShadowMap, 0));
	float lit = 0.0;
	for (int x = -1; x <= 1; x++) {
		for (int y = -1; y <= 1; y++) {
			lit += texture(uShadowMap, vec3(p.xy + vec2(x, y) * texel, p.z - bias));
		}
	}
	return lit / 9.0;
}

void main() {
	vec3 n = normalize(cross(dFdx(vWorld), dFdy(vWorld)));
	vec3 v = normalize(uCameraPos - vWorld);
	if (dot(n, v) < 0.0) {
		n = -n;
	}

	vec3 albedo = uBaseColor.rgb;
	vec3 diffuse = albedo * (1.0 - uMetalness);
	vec3 f0 = mix(vec3(0.04), albedo, uMetalness);
	float shininess = mix(128.0, 4.0, uRoughness);

	vec3 color = albedo * uAmbient * 0.1 * uEnvIntensity;
	for (int i = 0; i < uLightCount; i++) {
		vec3 l = uLightDir[i];
		float ndl = max(dot(n, l), 0.0);
		if (ndl == 0.0) {
			continue;
		}
		vec3 h = normalize(l + v);
		vec3 spec = f0 * pow(max(dot(n, h), 0.0), shininess);
		float shadow = i == uKeyLight ? shadowFactor(n, l) : 1.0;
		color += (diffuse + spec) * uLightRadiance[i] * ndl * shadow;
	}

	color = color / (color + vec3(1.0));
	FragColor = vec4(pow(color, vec3(1.0 / 2.2)), uBaseColor.a);
}
`

const depthVertex = `#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 uModel;
uniform mat4 uLightSpace;

void main() {
	gl_Position = uLightSpace * uModel * vec4(aPos, 1.0);
}
`

const depthFragment = `#version 410 core
void main() {}
`

const lineVertex = `#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 uViewProj;

void main() {
	gl_Position = uViewProj * vec4(aPos, 1.0);
}
`

const lineFragment = `#version 410 core
uniform vec4 uColor;
out vec4 FragColor;

void main() {
	FragColor = uColor;
}
`
